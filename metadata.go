package epubcover

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// refinements indexes ePub 3 <meta refines="#id" property="..."> values by
// the refined element ID.
type refinements map[string][]opfMeta

func newRefinements(metas []opfMeta) refinements {
	r := make(refinements)
	for _, m := range metas {
		id, ok := strings.CutPrefix(m.Refines, "#")
		if !ok || id == "" {
			continue
		}
		r[id] = append(r[id], m)
	}
	return r
}

// get returns the first non-empty value of property refining id.
func (r refinements) get(id, property string) string {
	if id == "" {
		return ""
	}
	for _, m := range r[id] {
		if m.Property != property {
			continue
		}
		if v := strings.TrimSpace(m.Value); v != "" {
			return v
		}
	}
	return ""
}

// extractMetadata builds the labelling metadata of a parsed package document.
func extractMetadata(opf *opfPackage) Metadata {
	om := &opf.Metadata
	refs := newRefinements(om.Metas)

	md := Metadata{
		Version: opf.Version,
		Titles:  extractTitles(om.Titles, refs),
		Authors: extractAuthors(om.Creators, refs),
	}
	for _, l := range om.Languages {
		if v := strings.TrimSpace(l.Value); v != "" {
			md.Language = append(md.Language, v)
		}
	}
	return md
}

// extractTitles returns the non-empty dc:title values. Titles refined with a
// positive display-seq come first in sequence order; the rest follow in
// document order.
func extractTitles(titles []opfDCElement, refs refinements) []string {
	type title struct {
		value string
		seq   int
	}

	var list []title
	for _, t := range titles {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			continue
		}
		seq, err := strconv.Atoi(refs.get(t.ID, "display-seq"))
		if err != nil || seq < 0 {
			seq = 0
		}
		list = append(list, title{value: v, seq: seq})
	}

	slices.SortStableFunc(list, func(a, b title) int {
		switch {
		case a.seq == b.seq:
			return 0
		case a.seq == 0:
			return 1
		case b.seq == 0:
			return -1
		default:
			return cmp.Compare(a.seq, b.seq)
		}
	})

	var out []string
	for _, t := range list {
		out = append(out, t.value)
	}
	return out
}

// extractAuthors returns the non-empty dc:creator entries. The ePub 2
// opf:file-as and opf:role attributes take priority over ePub 3 refinements.
func extractAuthors(creators []opfDCElement, refs refinements) []Author {
	var authors []Author
	for _, c := range creators {
		name := strings.TrimSpace(c.Value)
		if name == "" {
			continue
		}
		authors = append(authors, Author{
			Name:   name,
			FileAs: cmp.Or(strings.TrimSpace(c.FileAs), refs.get(c.ID, "file-as")),
			Role:   cmp.Or(strings.TrimSpace(c.Role), refs.get(c.ID, "role")),
		})
	}
	return authors
}
