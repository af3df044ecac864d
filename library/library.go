// Package library is a filesystem shelf.Host: every .epub file under a root
// directory is an item, and sub-directories are collections.
package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/simp-lee/epubcover"
	"github.com/simp-lee/epubcover/shelf"
)

// AllCollections selects the whole library tree.
const AllCollections = "all"

// keySize is the number of BLAKE3 digest bytes used for item keys.
const keySize = 16

// ErrUnknownItem is returned by ReadAttachment for a key not seen by a scan.
var ErrUnknownItem = errors.New("library: unknown item")

var _ shelf.Host = (*Library)(nil)

// Library serves ePub files from a directory tree.
type Library struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	paths map[string]string // item key -> absolute path
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger for the library.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// Open returns a Library rooted at root, which must be a directory.
func Open(root string, opts ...Option) (*Library, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving library root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening library: %s is not a directory", abs)
	}

	l := &Library{
		root:   abs,
		logger: slog.Default(),
		paths:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the absolute library root.
func (l *Library) Root() string {
	return l.root
}

// ItemKey returns the stable key of the file at rel, a slash-separated path
// relative to the library root.
func ItemKey(rel string) string {
	sum := blake3.Sum256([]byte(filepath.ToSlash(rel)))
	return strings.ToUpper(hex.EncodeToString(sum[:keySize]))
}

// EPUBItems lists the .epub files in collection, sorted by relative path.
// An empty collection or AllCollections lists the whole tree.
func (l *Library) EPUBItems(ctx context.Context, collection string) ([]shelf.Item, error) {
	dir := l.root
	if collection != "" && collection != AllCollections {
		dir = filepath.Join(l.root, filepath.FromSlash(collection))
		if rel, err := filepath.Rel(l.root, dir); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("collection %q is outside the library", collection)
		}
	}

	var rels []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".epub") {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(rels)

	items := make([]shelf.Item, 0, len(rels))
	l.mu.Lock()
	for _, rel := range rels {
		key := ItemKey(rel)
		abs := filepath.Join(l.root, filepath.FromSlash(rel))
		l.paths[key] = abs
		items = append(items, shelf.Item{
			Key:   key,
			Title: l.title(abs),
			Path:  rel,
		})
	}
	l.mu.Unlock()

	l.logger.Debug("scanned library", "collection", collection, "items", len(items))
	return items, nil
}

// ReadAttachment returns the bytes of the ePub with itemKey. The key must
// have been returned by an earlier EPUBItems call.
func (l *Library) ReadAttachment(_ context.Context, itemKey string) ([]byte, error) {
	l.mu.RLock()
	path, ok := l.paths[itemKey]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemKey)
	}
	return os.ReadFile(path)
}

// title returns the ePub's primary title, falling back to the file name.
func (l *Library) title(path string) string {
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		l.logger.Debug("reading title", "path", path, "error", err)
		return fallback
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fallback
	}

	md, err := epubcover.ReadMetadata(f, info.Size())
	if err != nil {
		l.logger.Debug("reading title", "path", path, "reason", epubcover.ReasonOf(err))
		return fallback
	}
	if t := strings.TrimSpace(md.Title()); t != "" {
		return t
	}
	return fallback
}
