package covercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"
)

const (
	// compressionThreshold is the smallest value worth compressing.
	compressionThreshold = 2048

	// maxDecodedSize caps decompressed values.
	maxDecodedSize = 256 << 20
)

// Value encodings, stored as the first byte of every bolt value.
const (
	encodingIdentity byte = iota
	encodingZstd
)

var bucketPrefs = []byte("prefs")

// ErrCorruptValue is returned when a stored value cannot be decoded.
var ErrCorruptValue = errors.New("covercache: corrupt stored value")

// BoltStore is a Store backed by a bbolt file. Values above a small threshold
// are zstd compressed.
type BoltStore struct {
	db      *bbolt.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger
	noSync  bool
}

// BoltOption configures a BoltStore.
type BoltOption func(*BoltStore)

// WithBoltLogger sets the logger for the store.
func WithBoltLogger(logger *slog.Logger) BoltOption {
	return func(b *BoltStore) {
		b.logger = logger
	}
}

// WithNoSync disables fsync per transaction. Use only in tests.
func WithNoSync(noSync bool) BoltOption {
	return func(b *BoltStore) {
		b.noSync = noSync
	}
}

// OpenBolt opens or creates the bbolt database at path.
func OpenBolt(path string, opts ...BoltOption) (*BoltStore, error) {
	b := &BoltStore{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
		NoSync:  b.noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", bucketPrefs, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	b.db = db
	b.encoder = enc
	b.decoder = dec
	b.logger.Debug("opened preference store", "path", path, "noSync", b.noSync)
	return b, nil
}

// Get returns the decoded value stored under key.
func (b *BoltStore) Get(_ context.Context, key string) (string, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketPrefs).Get([]byte(key))
		if val != nil {
			raw = make([]byte, len(val))
			copy(raw, val)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}

	data, err := b.decode(raw)
	if err != nil {
		return "", false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set encodes value and stores it under key.
func (b *BoltStore) Set(_ context.Context, key, value string) error {
	raw := b.encode([]byte(value))
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketPrefs).Put([]byte(key), raw); err != nil {
			return fmt.Errorf("putting %s: %w", key, err)
		}
		return nil
	})
}

// Close releases the codec and closes the database.
func (b *BoltStore) Close() error {
	if b.encoder != nil {
		b.encoder.Close()
		b.encoder = nil
	}
	if b.decoder != nil {
		b.decoder.Close()
		b.decoder = nil
	}
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *BoltStore) encode(data []byte) []byte {
	if len(data) >= compressionThreshold {
		compressed := b.encoder.EncodeAll(data, make([]byte, 1, len(data)/2))
		if len(compressed)-1 < len(data) {
			compressed[0] = encodingZstd
			return compressed
		}
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, encodingIdentity)
	return append(out, data...)
}

func (b *BoltStore) decode(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrCorruptValue
	}
	switch raw[0] {
	case encodingIdentity:
		return raw[1:], nil
	case encodingZstd:
		data, err := b.decoder.DecodeAll(raw[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrCorruptValue, raw[0])
	}
}
