package epubcover

import (
	"encoding/xml"
	"fmt"
)

// opfPackage is the subset of the OPF <package> element the resolver reads.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
}

// opfMetadata holds the Dublin Core labels and every <meta>, which carries
// both the ePub 2 cover pointer and ePub 3 refinements.
type opfMetadata struct {
	Titles    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Metas     []opfMeta      `xml:"meta"`
}

// opfDCElement is a dc:* element. FileAs and Role are the ePub 2 opf:
// attributes; ePub 3 moves them into refining <meta> elements.
type opfDCElement struct {
	Value  string `xml:",chardata"`
	ID     string `xml:"id,attr"`
	FileAs string `xml:"file-as,attr"`
	Role   string `xml:"role,attr"`
}

// opfMeta is either an ePub 2 <meta name content/> pair or an ePub 3
// <meta property refines>value</meta>.
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// parseOPF decodes a package document. A missing version attribute is
// treated as ePub 2.
func parseOPF(data []byte) (*opfPackage, error) {
	data = stripBOM(data)
	data = preprocessHTMLEntities(data)

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse OPF: %w", err)
	}

	if pkg.Version == "" {
		pkg.Version = "2.0"
	}

	return &pkg, nil
}

// buildManifest converts the raw manifest into document-ordered items plus an
// ID index. When two items share an ID the first one wins.
func buildManifest(manifest opfManifest) (items []*manifestItem, byID map[string]*manifestItem) {
	items = make([]*manifestItem, 0, len(manifest.Items))
	byID = make(map[string]*manifestItem, len(manifest.Items))

	for _, item := range manifest.Items {
		mi := &manifestItem{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: item.Properties,
		}
		items = append(items, mi)
		if _, exists := byID[item.ID]; !exists {
			byID[item.ID] = mi
		}
	}

	return items, byID
}
