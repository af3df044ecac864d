package epubcover

import (
	"testing"
)

const testOPFv2 = `<?xml version="1.0" encoding="UTF-8"?>
<package version="2.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book v2</dc:title>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="chap1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="cover.jpg" media-type="image/jpeg"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="chap1"/>
  </spine>
</package>`

const testOPFWithEntities = `<?xml version="1.0" encoding="UTF-8"?>
<package version="2.0" xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Caf&eacute; &amp; Cr&egrave;me</dc:title>
  </metadata>
  <manifest/>
</package>`

func TestParseOPF_V2(t *testing.T) {
	pkg, err := parseOPF([]byte(testOPFv2))
	if err != nil {
		t.Fatalf("parseOPF() error = %v", err)
	}
	if pkg.Version != "2.0" {
		t.Errorf("Version = %q, want %q", pkg.Version, "2.0")
	}
	if len(pkg.Manifest.Items) != 3 {
		t.Fatalf("Manifest items = %d, want 3", len(pkg.Manifest.Items))
	}
	if len(pkg.Metadata.Metas) != 1 {
		t.Fatalf("Metas = %d, want 1", len(pkg.Metadata.Metas))
	}
	m := pkg.Metadata.Metas[0]
	if m.Name != "cover" || m.Content != "cover-img" {
		t.Errorf("Meta = %+v, want name=cover content=cover-img", m)
	}
}

func TestParseOPF_VersionDefault(t *testing.T) {
	pkg, err := parseOPF([]byte(`<?xml version="1.0"?><package/>`))
	if err != nil {
		t.Fatalf("parseOPF() error = %v", err)
	}
	if pkg.Version != "2.0" {
		t.Errorf("Version = %q, want %q (default)", pkg.Version, "2.0")
	}
	if len(pkg.Manifest.Items) != 0 {
		t.Errorf("Manifest items = %d, want 0", len(pkg.Manifest.Items))
	}
}

func TestParseOPF_HTMLEntities(t *testing.T) {
	pkg, err := parseOPF([]byte(testOPFWithEntities))
	if err != nil {
		t.Fatalf("parseOPF() error = %v", err)
	}
	if len(pkg.Metadata.Titles) == 0 {
		t.Fatal("expected at least one title")
	}
	want := "Café & Crème"
	if got := pkg.Metadata.Titles[0].Value; got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
}

func TestParseOPF_BOM(t *testing.T) {
	pkg, err := parseOPF([]byte("\xEF\xBB\xBF" + testOPFv2))
	if err != nil {
		t.Fatalf("parseOPF() with BOM error = %v", err)
	}
	if pkg.Version != "2.0" {
		t.Errorf("Version = %q, want %q", pkg.Version, "2.0")
	}
}

func TestParseOPF_InvalidXML(t *testing.T) {
	if _, err := parseOPF([]byte("<package><broken")); err == nil {
		t.Fatal("parseOPF() with invalid XML should return error")
	}
}

func TestBuildManifest(t *testing.T) {
	pkg, err := parseOPF([]byte(`<package><manifest>
  <item id="a" href="a.png" media-type="image/png"/>
  <item id="b" href="b.png" media-type="image/png" properties="cover-image"/>
  <item id="a" href="dup.png" media-type="image/png"/>
</manifest></package>`))
	if err != nil {
		t.Fatalf("parseOPF() error = %v", err)
	}

	items, byID := buildManifest(pkg.Manifest)
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[1].Properties != "cover-image" {
		t.Errorf("items[1].Properties = %q, want %q", items[1].Properties, "cover-image")
	}
	if got := byID["a"].Href; got != "a.png" {
		t.Errorf("byID[a].Href = %q, want first duplicate %q", got, "a.png")
	}
}
