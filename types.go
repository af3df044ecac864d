package epubcover

import (
	"encoding/base64"
	"strings"
)

// Cover holds a resolved cover image.
type Cover struct {
	// Path is the ZIP-internal path the image was read from.
	Path string

	// MediaType is the MIME type of the image (e.g., "image/jpeg"). It comes
	// from the manifest when that names an image type, otherwise it is
	// sniffed from Data.
	MediaType string

	// Data is the raw image bytes.
	Data []byte
}

// Encoded returns Data as standard base64.
func (c Cover) Encoded() string {
	return base64.StdEncoding.EncodeToString(c.Data)
}

// DataURI returns the image as a data: URI usable directly as an image source.
func (c Cover) DataURI() string {
	var sb strings.Builder
	sb.WriteString("data:")
	sb.WriteString(c.MediaType)
	sb.WriteString(";base64,")
	sb.WriteString(c.Encoded())
	return sb.String()
}

// Metadata holds the subset of OPF metadata used to label a book.
type Metadata struct {
	// Version is the ePub specification version (e.g., "2.0", "3.0").
	Version string

	// Titles contains all dc:title values. The first entry is the primary title.
	Titles []string

	// Authors contains all dc:creator entries with their roles and file-as values.
	Authors []Author

	// Language contains all dc:language values.
	Language []string
}

// Title returns the primary title, or "" if the book has none.
func (m Metadata) Title() string {
	if len(m.Titles) == 0 {
		return ""
	}
	return m.Titles[0]
}

// Author represents a dc:creator entry with optional file-as and role attributes.
type Author struct {
	// Name is the display name of the author (dc:creator text content).
	Name string

	// FileAs is the opf:file-as attribute value (e.g., "Dickens, Charles").
	FileAs string

	// Role is the opf:role attribute value (e.g., "aut", "edt", "trl").
	Role string
}

// manifestItem represents an entry in the OPF <manifest> element.
type manifestItem struct {
	// ID is the unique identifier of this manifest item.
	ID string

	// Href is the file path relative to the OPF file location.
	Href string

	// MediaType is the MIME type of the resource.
	MediaType string

	// Properties contains space-separated property values (ePub 3, e.g., "nav", "cover-image").
	Properties string
}
