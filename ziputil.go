package epubcover

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// maxDecompressSize is the maximum allowed decompressed size for a single ZIP entry.
// This guards against zip bomb attacks. Defaults to 256 MB.
const maxDecompressSize int64 = 256 * 1024 * 1024

// archive is a read-only view over an opened ePub for the duration of one
// call. closer is non-nil only when the archive was opened from a path.
type archive struct {
	zip      *zip.Reader
	zipExact map[string]*zip.File // exact-match ZIP file index
	zipLower map[string]*zip.File // lowercase ZIP file index
	closer   io.Closer
}

// openArchive wraps zr with exact and lowercase name indexes.
func openArchive(zr *zip.Reader, closer io.Closer) *archive {
	a := &archive{
		zip:      zr,
		zipExact: make(map[string]*zip.File, len(zr.File)),
		zipLower: make(map[string]*zip.File, len(zr.File)),
		closer:   closer,
	}
	for _, f := range zr.File {
		if _, exists := a.zipExact[f.Name]; !exists {
			a.zipExact[f.Name] = f // first match wins for exact
		}
		lower := strings.ToLower(f.Name)
		if _, exists := a.zipLower[lower]; !exists {
			a.zipLower[lower] = f // first match wins for case-insensitive
		}
	}
	return a
}

// Close releases the underlying file when the archive owns one. Close is idempotent.
func (a *archive) Close() error {
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// find looks up a ZIP entry by path. It tries an exact match first, then
// falls back to a case-insensitive match. Returns nil if nothing matches.
func (a *archive) find(name string) *zip.File {
	if f, ok := a.zipExact[name]; ok {
		return f
	}
	if f, ok := a.zipLower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// findHref looks up an entry addressed by a resolved manifest href. Hrefs are
// URLs, so a percent-encoded name is retried decoded before giving up.
func (a *archive) findHref(name string) *zip.File {
	if f, ok := a.zipExact[name]; ok {
		return f
	}
	if decoded, err := url.PathUnescape(name); err == nil && decoded != name {
		if f := a.find(decoded); f != nil {
			return f
		}
	}
	return a.find(name)
}

// resolveHref resolves href against the directory containing basePath.
//
// An href starting with "/" is archive-root relative and has the slash
// stripped. Otherwise it is appended to basePath's directory. In both cases
// "." and empty segments are dropped and ".." removes the preceding segment;
// ".." at the archive root is ignored, so the result never escapes the root.
// A query or fragment on href is discarded.
func resolveHref(basePath, href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}

	var joined string
	if strings.HasPrefix(href, "/") {
		joined = href[1:]
	} else {
		dir := ""
		if i := strings.LastIndexByte(basePath, '/'); i >= 0 {
			dir = basePath[:i+1]
		}
		joined = dir + href
	}

	parts := strings.Split(joined, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

// isSafePath checks whether p is a safe ZIP-internal path that does not
// escape the archive root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return false
	}
	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFile reads the full contents of a ZIP entry.
// It enforces maxDecompressSize to guard against zip bombs and validates
// that the entry path is safe (no path traversal).
func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileWithLimit(f, maxDecompressSize)
}

// readZipFileWithLimit is the implementation of readZipFile with a configurable
// size limit. It is separated to allow tests to use a smaller limit.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// Read up to limit+1 to detect if the actual decompressed data
	// exceeds the limit (the declared size might be wrong/forged).
	lr := io.LimitReader(rc, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}

	return data, nil
}
