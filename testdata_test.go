package epubcover

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// buildTestZipBytes creates an in-memory ZIP archive from the provided files
// map (path → content). A "mimetype" entry, when present, is written first as
// the ePub container format requires; the rest follow in sorted order so that
// archive order is deterministic.
func buildTestZipBytes(t testing.TB, files map[string]string) []byte {
	t.Helper()
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

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZipBytes: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestZipBytes: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZipBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestArchive wraps buildTestZipBytes in an *archive for unit tests of
// unexported helpers.
func buildTestArchive(t testing.TB, files map[string]string) *archive {
	t.Helper()
	data := buildTestZipBytes(t, files)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestArchive: open reader: %v", err)
	}
	return openArchive(zr, nil)
}

// buildTestEPubFile writes an ePub (ZIP) archive to a temporary file and
// returns the file path. This variant is useful for testing ResolveFile.
func buildTestEPubFile(t testing.TB, files map[string]string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "test.epub")
	if err := os.WriteFile(fp, buildTestZipBytes(t, files), 0644); err != nil {
		t.Fatalf("buildTestEPubFile: write file: %v", err)
	}
	return fp
}

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// containerFor returns a container.xml whose single rootfile is opfPath.
func containerFor(opfPath string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + opfPath + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
}

// coverOPF returns an OPF template with the given metadata and manifest XML
// fragments inserted.
func coverOPF(meta, manifest string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + meta + `</metadata>
  <manifest>` + manifest + `</manifest>
  <spine></spine>
</package>`
}

// coverEPubFiles returns the minimum ePub file set with the given OPF at
// OEBPS/content.opf and any extra files merged in.
func coverEPubFiles(opf string, extra map[string]string) map[string]string {
	files := map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": validContainerXML,
		"OEBPS/content.opf":      opf,
	}
	for k, v := range extra {
		files[k] = v
	}
	return files
}

func bytesReaderAt(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
