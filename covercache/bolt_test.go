package covercache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newTestBoltStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := OpenBolt(path, WithNoSync(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestBoltStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		value string
	}{
		{"small", `{"k":{"data":"x","timestamp":1}}`},
		{"empty", ""},
		{"compressible", strings.Repeat("data:image/png;base64,AAAA", 500)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestBoltStore(t)
			require.NoError(t, s.Set(ctx, "key", tt.value))

			got, ok, err := s.Get(ctx, "key")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestBoltStore_Missing(t *testing.T) {
	s, _ := newTestBoltStore(t)
	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltStore_CompressesLargeValues(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBoltStore(t)
	value := strings.Repeat("A", 64*1024)

	require.NoError(t, s.Set(ctx, "big", value))

	var raw []byte
	require.NoError(t, s.db.View(func(tx *bbolt.Tx) error {
		raw = append([]byte(nil), tx.Bucket(bucketPrefs).Get([]byte("big"))...)
		return nil
	}))
	require.NotEmpty(t, raw)
	assert.Equal(t, encodingZstd, raw[0])
	assert.Less(t, len(raw), len(value)/10)
}

func TestBoltStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBoltStore(t)

	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put([]byte("bad"), []byte{encodingZstd, 1, 2, 3})
	}))
	_, _, err := s.Get(ctx, "bad")
	require.ErrorIs(t, err, ErrCorruptValue)

	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put([]byte("unknown"), []byte{9, 'x'})
	}))
	_, _, err = s.Get(ctx, "unknown")
	require.ErrorIs(t, err, ErrCorruptValue)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestBoltStore(t)

	c := New(s)
	require.NoError(t, c.Put(ctx, "item", "data:image/jpeg;base64,/9j/"))
	require.NoError(t, s.Close())

	s2, err := OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	c2 := New(s2)
	require.NoError(t, c2.Load(ctx))
	got, ok := c2.Get("item")
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", got)
}

func TestBoltStore_CloseIdempotent(t *testing.T) {
	s, _ := newTestBoltStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestCache_LoadOverCorruptBoltValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBoltStore(t)

	for name, raw := range map[string][]byte{
		"bad zstd frame":   {encodingZstd, 1, 2, 3},
		"unknown encoding": {9, '{', '}'},
		"empty value":      {},
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
				return tx.Bucket(bucketPrefs).Put([]byte(DefaultKey), raw)
			}))

			c := New(s)
			require.NoError(t, c.Load(ctx))
			assert.Equal(t, 0, c.Len())

			require.NoError(t, c.Put(ctx, "k", "img"))
			got, ok, err := s.Get(ctx, DefaultKey)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Contains(t, got, `"k"`, "the next Put replaces the corrupt value")
		})
	}
}
