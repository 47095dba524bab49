package wal

import (
	"encoding/binary"
	"hash/crc32"
	"unicode/utf8"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/pragmatic-zac/sprucedb/internal/errs"
	"github.com/pragmatic-zac/sprucedb/internal/utils"
)

// Record framing, all integers big-endian:
//
//	[4B CRC32] [8B sequence] [8B timestamp] [1B kind] [4B key_len] [4B value_len] [key] [value]
//
// CRC32 covers the 25-byte header-sans-CRC plus key and value bytes.
const (
	crcSize          = 4
	headerSansCRCLen = 8 + 8 + 1 + 4 + 4 // sequence + timestamp + kind + key_len + value_len
	headerLen        = crcSize + headerSansCRCLen
)

const flushKeyPrefix = "FLUSH:"

// encodeRecord serializes e into a single WAL record, ready to append.
func encodeRecord(e entry.Entry) ([]byte, error) {
	keyBytes, valueBytes, err := recordPayload(e)
	if err != nil {
		return nil, err
	}
	if len(keyBytes) > entry.MaxKeySize {
		return nil, errs.Newf(errs.Validation, "wal record key size %d exceeds maximum %d", len(keyBytes), entry.MaxKeySize)
	}
	if len(valueBytes) > entry.MaxValueSize {
		return nil, errs.Newf(errs.Validation, "wal record value size %d exceeds maximum %d", len(valueBytes), entry.MaxValueSize)
	}

	total := headerLen + len(keyBytes) + len(valueBytes)
	buf := make([]byte, total)

	binary.BigEndian.PutUint64(buf[crcSize:crcSize+8], e.Sequence)
	binary.BigEndian.PutUint64(buf[crcSize+8:crcSize+16], uint64(e.Timestamp))
	buf[crcSize+16] = byte(e.Kind)
	binary.BigEndian.PutUint32(buf[crcSize+17:crcSize+21], uint32(len(keyBytes)))
	binary.BigEndian.PutUint32(buf[crcSize+21:crcSize+25], uint32(len(valueBytes)))
	copy(buf[headerLen:], keyBytes)
	copy(buf[headerLen+len(keyBytes):], valueBytes)

	crc := crc32.ChecksumIEEE(buf[crcSize:])
	binary.BigEndian.PutUint32(buf[0:crcSize], crc)

	return buf, nil
}

// recordPayload returns the on-wire key and value bytes for e, encoding
// a FLUSH marker's SSTable id into the key field on the wire.
func recordPayload(e entry.Entry) (key, value []byte, err error) {
	switch e.Kind {
	case entry.Put:
		return []byte(e.Key), e.Value, nil
	case entry.Delete:
		return []byte(e.Key), nil, nil
	case entry.Flush:
		return []byte(flushKeyPrefix + e.SSTableID), nil, nil
	default:
		return nil, nil, errs.Newf(errs.Validation, "unknown entry kind %d", e.Kind)
	}
}

// decodedHeader is the parsed, not-yet-verified fixed portion of a record.
type decodedHeader struct {
	crc       uint32
	sequence  uint64
	timestamp int64
	kind      byte
	keyLen    uint32
	valueLen  uint32
}

func decodeHeader(buf []byte) (decodedHeader, error) {
	if len(buf) < headerLen {
		return decodedHeader{}, errs.New(errs.Format, "truncated wal record header")
	}
	return decodedHeader{
		crc:       binary.BigEndian.Uint32(buf[0:crcSize]),
		sequence:  binary.BigEndian.Uint64(buf[crcSize : crcSize+8]),
		timestamp: int64(binary.BigEndian.Uint64(buf[crcSize+8 : crcSize+16])),
		kind:      buf[crcSize+16],
		keyLen:    binary.BigEndian.Uint32(buf[crcSize+17 : crcSize+21]),
		valueLen:  binary.BigEndian.Uint32(buf[crcSize+21 : crcSize+25]),
	}, nil
}

// decodeRecord turns a header plus its key/value payload into an Entry,
// verifying the CRC against the header-sans-CRC bytes plus payload.
func decodeRecord(h decodedHeader, headerSansCRC, key, value []byte) (entry.Entry, error) {
	sum := crc32.ChecksumIEEE(headerSansCRC)
	sum = crc32Update(sum, key)
	sum = crc32Update(sum, value)
	if sum != h.crc {
		return entry.Entry{}, errs.New(errs.Integrity, "wal record CRC mismatch")
	}

	switch entry.Kind(h.kind) {
	case entry.Put:
		e, err := entry.MakePut(string(key), h.sequence, utils.CopyBytes(value), h.timestamp)
		if err != nil {
			return entry.Entry{}, err
		}
		return e, nil
	case entry.Delete:
		e, err := entry.MakeDelete(string(key), h.sequence, h.timestamp)
		if err != nil {
			return entry.Entry{}, err
		}
		return e, nil
	case entry.Flush:
		if !utf8.Valid(key) {
			return entry.Entry{}, errs.New(errs.Format, "FLUSH marker key is not valid UTF-8")
		}
		ks := string(key)
		if len(ks) < len(flushKeyPrefix) || ks[:len(flushKeyPrefix)] != flushKeyPrefix {
			return entry.Entry{}, errs.New(errs.Format, "malformed FLUSH marker key")
		}
		return entry.MakeFlush(ks[len(flushKeyPrefix):], h.sequence), nil
	default:
		return entry.Entry{}, errs.Newf(errs.Format, "unknown wal record kind %d", h.kind)
	}
}

func crc32Update(sum uint32, data []byte) uint32 {
	if len(data) == 0 {
		return sum
	}
	return crc32.Update(sum, crc32.IEEETable, data)
}
