package shelf

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeHost serves items and attachments from memory.
type fakeHost struct {
	mu       sync.Mutex
	items    []Item
	files    map[string][]byte
	reads    map[string]int
	listErr  error
	readErrs map[string]error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		files:    make(map[string][]byte),
		reads:    make(map[string]int),
		readErrs: make(map[string]error),
	}
}

func (h *fakeHost) add(key string, data []byte) {
	h.items = append(h.items, Item{Key: key, Title: key, Path: key + ".epub"})
	h.files[key] = data
}

func (h *fakeHost) EPUBItems(_ context.Context, _ string) ([]Item, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.items, nil
}

func (h *fakeHost) ReadAttachment(_ context.Context, key string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reads[key]++
	if err := h.readErrs[key]; err != nil {
		return nil, err
	}
	data, ok := h.files[key]
	if !ok {
		return nil, fmt.Errorf("no attachment %s", key)
	}
	return data, nil
}

func (h *fakeHost) readCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reads[key]
}

// buildZip returns an in-memory ZIP with mimetype stored first.
func buildZip(t testing.TB, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := files["mimetype"]; ok {
		names = append([]string{"mimetype"}, names...)
	}

	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// buildEPub returns an ePub whose manifest names image as its cover.
func buildEPub(t testing.TB, image []byte) []byte {
	t.Helper()
	opf := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Test</dc:title></metadata>
  <manifest>
    <item id="cover" href="images/cover.png" media-type="image/png" properties="cover-image"/>
  </manifest>
</package>`
	return buildZip(t, map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(opf),
		"OEBPS/images/cover.png": image,
	})
}

// buildPNG returns a w×h PNG filled with a single colour.
func buildPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
