package memtable

import (
	"testing"

	"github.com/pragmatic-zac/sprucedb/internal/entry"
	"github.com/stretchr/testify/require"
)

func TestSkipListInsertSearch(t *testing.T) {
	sl := NewSkipList()
	e, _ := entry.MakePut("a", 1, []byte("1"), 0)
	sl.Insert("a", e)

	got, ok := sl.Search("a")
	require.True(t, ok)
	require.Equal(t, e, got)

	_, ok = sl.Search("b")
	require.False(t, ok)
}

func TestSkipListManyLevels(t *testing.T) {
	sl := NewSkipList()
	for i := 0; i < 1000; i++ {
		key := string(rune('a' + i%26))
		e, _ := entry.MakePut(key, uint64(i), []byte{byte(i)}, 0)
		sl.Insert(key, e)
	}
	require.LessOrEqual(t, sl.Len(), 26)
}

func TestSkipListIteratorOrder(t *testing.T) {
	sl := NewSkipList()
	for _, k := range []string{"z", "a", "m", "b"} {
		e, _ := entry.MakePut(k, 1, []byte("v"), 0)
		sl.Insert(k, e)
	}

	it := sl.NewIterator()
	var order []string
	for it.Valid() {
		order = append(order, it.Entry().Key)
		it.Next()
	}
	require.Equal(t, []string{"a", "b", "m", "z"}, order)
}
