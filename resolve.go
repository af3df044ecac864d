package epubcover

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// ResolveFile opens the ePub at path and resolves its cover image.
// The file is closed before ResolveFile returns, on every path.
func ResolveFile(path string) (Cover, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return Cover{}, notFound(ReasonArchiveOpenFailure, fmt.Errorf("open %s: %w", path, err))
	}
	a := openArchive(&zrc.Reader, zrc)
	defer a.Close()

	return resolve(a)
}

// Resolve resolves the cover image of the ePub read from r.
// The caller is responsible for the lifetime of r.
//
// Resolve never panics on malformed input. Any failure is returned as a
// *NotFoundError whose Reason names the step that failed; use errors.Is with
// the package sentinels or ReasonOf to inspect it.
func Resolve(r io.ReaderAt, size int64) (Cover, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Cover{}, notFound(ReasonArchiveOpenFailure, fmt.Errorf("open zip: %w", err))
	}
	return resolve(openArchive(zr, nil))
}

// ResolveBytes resolves the cover image of an in-memory ePub.
func ResolveBytes(data []byte) (Cover, error) {
	return Resolve(bytes.NewReader(data), int64(len(data)))
}

func resolve(a *archive) (Cover, error) {
	doc, err := readPackage(a)
	if err != nil {
		return Cover{}, err
	}

	loc, ok := locateCover(a, doc)
	if !ok {
		return Cover{}, notFound(ReasonCoverNotFound, nil)
	}

	return extractCover(a, loc)
}

// readPackage locates, reads and parses the OPF package document.
func readPackage(a *archive) (*packageDoc, error) {
	opfPath, err := locatePackage(a)
	if err != nil {
		return nil, err
	}

	f := a.findHref(opfPath)
	if f == nil {
		return nil, notFound(ReasonPackageDocumentNotFound, fmt.Errorf("OPF file not in archive: %s", opfPath))
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil, notFound(ReasonPackageDocumentNotFound, fmt.Errorf("read OPF file: %w", err))
	}

	pkg, err := parseOPF(data)
	if err != nil {
		return nil, notFound(ReasonMalformedPackageDocument, err)
	}

	items, byID := buildManifest(pkg.Manifest)
	return &packageDoc{
		path:  f.Name,
		opf:   pkg,
		items: items,
		byID:  byID,
	}, nil
}

// extractCover reads the image bytes at loc.path.
func extractCover(a *archive, loc coverLocation) (Cover, error) {
	f := a.findHref(loc.path)
	if f == nil {
		return Cover{}, notFound(ReasonCoverEntryMissing, fmt.Errorf("%s (rule %s)", loc.path, loc.rule))
	}
	if isEncrypted(a, f.Name) {
		return Cover{}, notFound(ReasonCoverEncrypted, fmt.Errorf("%s", f.Name))
	}

	data, err := readZipFile(f)
	if err != nil {
		return Cover{}, notFound(ReasonCoverEntryMissing, err)
	}

	mediaType := loc.mediaType
	if !isImageMediaType(mediaType) {
		mediaType = http.DetectContentType(data)
	}

	return Cover{
		Path:      f.Name,
		MediaType: mediaType,
		Data:      data,
	}, nil
}

// ReadMetadata returns the title, author and language metadata of the ePub
// read from r. Errors use the same *NotFoundError taxonomy as Resolve.
func ReadMetadata(r io.ReaderAt, size int64) (Metadata, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Metadata{}, notFound(ReasonArchiveOpenFailure, fmt.Errorf("open zip: %w", err))
	}
	doc, err := readPackage(openArchive(zr, nil))
	if err != nil {
		return Metadata{}, err
	}
	return extractMetadata(doc.opf), nil
}
