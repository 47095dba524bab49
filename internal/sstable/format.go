package sstable

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/pragmatic-zac/sprucedb/internal/errs"
	"github.com/pragmatic-zac/sprucedb/internal/utils"
)

// File layout, all integers big-endian:
//
//	[HEADER  50 bytes]
//	  magic "SPDB"(4) version u16 feature_flags u32 reserved(16)
//	  timestamp u64 entry_count u32 data_size u64 header_crc u32
//	[DATA    sorted records: seq u64, key_len u32, key, value_len u32, value]
//	[INDEX   index_count u32, (key_len u32, key, offset u64) × index_count]
//	[FOOTER  16 bytes]
//	  data_crc u32 index_offset u64 footer_crc u32
const (
	magic = "SPDB"

	headerLen       = 4 + 2 + 4 + 16 + 8 + 4 + 8 + 4 // 50
	headerCRCOffset = headerLen - 4
	footerLen       = 4 + 8 + 4 // 16

	currentVersion = 1

	defaultIndexInterval = 1000
)

// header is the parsed, already-verified fixed header.
type header struct {
	version      uint16
	featureFlags uint32
	timestamp    int64
	entryCount   uint32
	dataSize     uint64
}

// encodeHeader serializes h, including its trailing CRC, into a
// headerLen-byte buffer.
func encodeHeader(h header) []byte {
	buf := make([]byte, headerLen)
	copy(buf[0:4], magic)
	binary.BigEndian.PutUint16(buf[4:6], h.version)
	binary.BigEndian.PutUint32(buf[6:10], h.featureFlags)
	// buf[10:26] reserved, left zeroed
	binary.BigEndian.PutUint64(buf[26:34], uint64(h.timestamp))
	binary.BigEndian.PutUint32(buf[34:38], h.entryCount)
	binary.BigEndian.PutUint64(buf[38:headerCRCOffset], h.dataSize)

	crc := crc32.ChecksumIEEE(buf[:headerCRCOffset])
	binary.BigEndian.PutUint32(buf[headerCRCOffset:headerLen], crc)
	return buf
}

// decodeHeader parses and verifies a header, failing on bad magic,
// unsupported version, or a header CRC mismatch.
func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerLen {
		return header{}, errs.New(errs.Format, "truncated sstable header")
	}
	if string(buf[0:4]) != magic {
		return header{}, errs.New(errs.Format, "bad sstable magic")
	}

	version := binary.BigEndian.Uint16(buf[4:6])
	if version != currentVersion {
		return header{}, errs.Newf(errs.Format, "unsupported sstable version %d", version)
	}

	wantCRC := binary.BigEndian.Uint32(buf[headerCRCOffset:headerLen])
	gotCRC := crc32.ChecksumIEEE(buf[:headerCRCOffset])
	if wantCRC != gotCRC {
		return header{}, errs.New(errs.Format, "sstable header CRC mismatch")
	}

	return header{
		version:      version,
		featureFlags: binary.BigEndian.Uint32(buf[6:10]),
		timestamp:    int64(binary.BigEndian.Uint64(buf[26:34])),
		entryCount:   binary.BigEndian.Uint32(buf[34:38]),
		dataSize:     binary.BigEndian.Uint64(buf[38:headerCRCOffset]),
	}, nil
}

// encodeDataRecord serializes e into the data-region format:
// seq(8) key_len(4) key value_len(4) value. A DELETE (tombstone)
// serializes with value_len = 0.
func encodeDataRecord(e entry.Entry) []byte {
	key := []byte(e.Key)
	value := e.Value

	buf := make([]byte, 8+4+len(key)+4+len(value))
	binary.BigEndian.PutUint64(buf[0:8], e.Sequence)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(key)))
	copy(buf[12:12+len(key)], key)
	off := 12 + len(key)
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(value)))
	copy(buf[off+4:], value)
	return buf
}

// decodeDataRecord parses a single record starting at buf[0], returning
// the entry and the number of bytes consumed.
func decodeDataRecord(buf []byte) (entry.Entry, int, error) {
	if len(buf) < 12 {
		return entry.Entry{}, 0, errs.New(errs.Format, "truncated sstable data record header")
	}
	seq := binary.BigEndian.Uint64(buf[0:8])
	keyLen := binary.BigEndian.Uint32(buf[8:12])
	if keyLen > entry.MaxKeySize || int(12+keyLen+4) > len(buf) {
		return entry.Entry{}, 0, errs.New(errs.Format, "invalid sstable key length")
	}
	key := buf[12 : 12+keyLen]

	valueOff := 12 + int(keyLen)
	valueLen := binary.BigEndian.Uint32(buf[valueOff : valueOff+4])
	if valueLen > entry.MaxValueSize || valueOff+4+int(valueLen) > len(buf) {
		return entry.Entry{}, 0, errs.New(errs.Format, "invalid sstable value length")
	}
	value := buf[valueOff+4 : valueOff+4+int(valueLen)]
	recordLen := valueOff + 4 + int(valueLen)

	var e entry.Entry
	var err error
	if valueLen == 0 {
		e, err = entry.MakeDelete(string(key), seq, 0)
	} else {
		e, err = entry.MakePut(string(key), seq, utils.CopyBytes(value), 0)
	}
	if err != nil {
		return entry.Entry{}, 0, err
	}
	return e, recordLen, nil
}

// indexEntry is one (key, offset) pair of the sparse index.
type indexEntry struct {
	key    string
	offset uint64
}

// encodeIndex serializes the sparse index section:
// index_count(4), then (key_len(4) key offset(8)) per entry.
func encodeIndex(entries []indexEntry) []byte {
	size := 4
	for _, ie := range entries {
		size += 4 + len(ie.key) + 8
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(entries)))
	pos := 4
	for _, ie := range entries {
		key := []byte(ie.key)
		binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(key)))
		pos += 4
		copy(buf[pos:], key)
		pos += len(key)
		binary.BigEndian.PutUint64(buf[pos:pos+8], ie.offset)
		pos += 8
	}
	return buf
}

func decodeIndex(buf []byte) ([]indexEntry, error) {
	if len(buf) < 4 {
		return nil, errs.New(errs.Format, "truncated sstable index count")
	}
	count := binary.BigEndian.Uint32(buf[0:4])
	entries := make([]indexEntry, 0, count)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+4 > len(buf) {
			return nil, errs.New(errs.Format, "truncated sstable index entry")
		}
		keyLen := binary.BigEndian.Uint32(buf[pos : pos+4])
		pos += 4
		if uint32(pos)+keyLen+8 > uint32(len(buf)) {
			return nil, errs.New(errs.Format, "truncated sstable index entry")
		}
		key := string(buf[pos : pos+int(keyLen)])
		pos += int(keyLen)
		offset := binary.BigEndian.Uint64(buf[pos : pos+8])
		pos += 8
		entries = append(entries, indexEntry{key: key, offset: offset})
	}
	return entries, nil
}

// footer is the parsed, already-verified fixed footer.
type footer struct {
	dataCRC     uint32
	indexOffset uint64
}

// encodeFooter serializes f, including its trailing CRC.
func encodeFooter(f footer) []byte {
	buf := make([]byte, footerLen)
	binary.BigEndian.PutUint32(buf[0:4], f.dataCRC)
	binary.BigEndian.PutUint64(buf[4:12], f.indexOffset)
	crc := crc32.ChecksumIEEE(buf[0:12])
	binary.BigEndian.PutUint32(buf[12:16], crc)
	return buf
}

func decodeFooter(buf []byte) (footer, error) {
	if len(buf) < footerLen {
		return footer{}, errs.New(errs.Format, "truncated sstable footer")
	}
	wantCRC := binary.BigEndian.Uint32(buf[12:16])
	gotCRC := crc32.ChecksumIEEE(buf[0:12])
	if wantCRC != gotCRC {
		return footer{}, errs.New(errs.Format, "sstable footer CRC mismatch")
	}
	return footer{
		dataCRC:     binary.BigEndian.Uint32(buf[0:4]),
		indexOffset: binary.BigEndian.Uint64(buf[4:12]),
	}, nil
}
