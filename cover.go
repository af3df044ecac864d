package epubcover

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Cover rule names, reported in coverLocation.rule for logging.
const (
	ruleMetaCover  = "meta-cover"
	ruleManifest   = "manifest-cover"
	ruleFirstImage = "first-image"
)

// packageDoc is a parsed OPF together with the archive path it was read from.
type packageDoc struct {
	path  string
	opf   *opfPackage
	items []*manifestItem // manifest document order
	byID  map[string]*manifestItem
}

// coverLocation is the outcome of the rule chain: an archive path plus the
// manifest media type when one was known.
type coverLocation struct {
	path      string
	mediaType string
	rule      string
}

// locateCover applies the cover rules in fixed precedence and returns the
// first match:
//  1. <meta name="cover" content="ID"/> resolved through the manifest
//  2. a manifest image whose properties include "cover-image" or whose ID
//     contains "cover"
//  3. the first manifest image, preferring one whose ID contains "cover"
//
// There is no scoring across rules; manifest order breaks ties within a rule.
func locateCover(a *archive, doc *packageDoc) (coverLocation, bool) {
	if loc, ok := coverFromMetaCover(a, doc); ok {
		return loc, true
	}
	if item := coverFromManifest(doc.items); item != nil {
		return doc.location(item, ruleManifest), true
	}
	if item := coverFromImages(doc.items); item != nil {
		return doc.location(item, ruleFirstImage), true
	}
	return coverLocation{}, false
}

func (d *packageDoc) location(item *manifestItem, rule string) coverLocation {
	return coverLocation{
		path:      resolveHref(d.path, item.Href),
		mediaType: item.MediaType,
		rule:      rule,
	}
}

// coverFromMetaCover looks for <meta name="cover" content="ID"/> (ePub 2) and
// resolves the ID through the manifest. When the item is an XHTML cover page
// rather than an image, the first image the page references is used; a page
// without one does not match.
func coverFromMetaCover(a *archive, doc *packageDoc) (coverLocation, bool) {
	for _, m := range doc.opf.Metadata.Metas {
		if !strings.EqualFold(strings.TrimSpace(m.Name), "cover") {
			continue
		}
		id := strings.TrimSpace(m.Content)
		if id == "" {
			continue
		}
		item, ok := doc.byID[id]
		if !ok || strings.TrimSpace(item.Href) == "" {
			continue
		}
		if !isHTMLMediaType(item.MediaType) {
			return doc.location(item, ruleMetaCover), true
		}

		pagePath := resolveHref(doc.path, item.Href)
		f := a.findHref(pagePath)
		if f == nil {
			continue
		}
		page, err := readZipFile(f)
		if err != nil {
			continue
		}
		imgPath := firstImageRef(page, f.Name)
		if imgPath == "" {
			continue
		}
		return coverLocation{
			path:      imgPath,
			mediaType: doc.mediaTypeOf(imgPath),
			rule:      ruleMetaCover,
		}, true
	}
	return coverLocation{}, false
}

// coverFromManifest returns the first image item whose properties carry the
// ePub 3 "cover-image" token or whose ID contains "cover".
func coverFromManifest(items []*manifestItem) *manifestItem {
	for _, item := range items {
		if !isImageMediaType(item.MediaType) || item.Href == "" {
			continue
		}
		if slices.Contains(strings.Fields(item.Properties), "cover-image") || containsFold(item.ID, "cover") {
			return item
		}
	}
	return nil
}

// coverFromImages returns the first image item whose ID contains "cover",
// falling back to the first image item in manifest order.
func coverFromImages(items []*manifestItem) *manifestItem {
	var first *manifestItem
	for _, item := range items {
		if !isImageMediaType(item.MediaType) || item.Href == "" {
			continue
		}
		if containsFold(item.ID, "cover") {
			return item
		}
		if first == nil {
			first = item
		}
	}
	return first
}

// mediaTypeOf returns the manifest media type of the item whose resolved
// path equals archivePath (case-insensitively), or "".
func (d *packageDoc) mediaTypeOf(archivePath string) string {
	for _, item := range d.items {
		if strings.EqualFold(resolveHref(d.path, item.Href), archivePath) {
			return item.MediaType
		}
	}
	return ""
}

// isImageMediaType returns true if the media type starts with "image/".
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// containsFold reports whether s contains substr under Unicode case folding.
func containsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
