package epubcover

import (
	"testing"
)

func TestPreprocessHTMLEntities(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"basic", `Hello&nbsp;World &mdash; An&hellip;`, `Hello&#160;World &#8212; An&#8230;`},
		{"quotes", `&ldquo;Hi&rdquo; &lsquo;x&rsquo;`, `&#8220;Hi&#8221; &#8216;x&#8217;`},
		{"accented", `caf&eacute; na&iuml;ve`, `caf&#233; na&#239;ve`},
		{"case insensitive", `&NBSP;&Eacute;`, `&#160;&#233;`},
		{"xml entities preserved", `&amp; &lt; &gt; &quot; &apos;`, `&amp; &lt; &gt; &quot; &apos;`},
		{"unknown entity preserved", `&foo;`, `&foo;`},
		{"plain text", `<p>no entities</p>`, `<p>no entities</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessHTMLEntities([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("preprocessHTMLEntities(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFirstImageRef(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		pagePath string
		want     string
	}{
		{
			name:     "img relative",
			page:     `<html><body><img src="../images/cover.jpg"/></body></html>`,
			pagePath: "OEBPS/text/cover.xhtml",
			want:     "OEBPS/images/cover.jpg",
		},
		{
			name:     "first of several",
			page:     `<body><img src="a.png"><img src="b.png"></body>`,
			pagePath: "OEBPS/cover.xhtml",
			want:     "OEBPS/a.png",
		},
		{
			name:     "img without src skipped",
			page:     `<body><img alt="x"><img src="real.png"></body>`,
			pagePath: "cover.xhtml",
			want:     "real.png",
		},
		{
			name:     "svg xlink href",
			page:     `<svg xmlns:xlink="http://www.w3.org/1999/xlink"><image xlink:href="c.jpg"/></svg>`,
			pagePath: "OPS/cover.xhtml",
			want:     "OPS/c.jpg",
		},
		{
			name:     "svg plain href",
			page:     `<svg><image href="c2.jpg"></image></svg>`,
			pagePath: "OPS/cover.xhtml",
			want:     "OPS/c2.jpg",
		},
		{
			name:     "no image",
			page:     `<html><body><p>Cover</p></body></html>`,
			pagePath: "cover.xhtml",
			want:     "",
		},
		{
			name:     "empty page",
			page:     ``,
			pagePath: "cover.xhtml",
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstImageRef([]byte(tt.page), tt.pagePath)
			if got != tt.want {
				t.Errorf("firstImageRef() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHTMLMediaType(t *testing.T) {
	for mt, want := range map[string]bool{
		"application/xhtml+xml":   true,
		" Application/XHTML+XML ": true,
		"text/html":               true,
		"image/jpeg":              false,
		"":                        false,
	} {
		if got := isHTMLMediaType(mt); got != want {
			t.Errorf("isHTMLMediaType(%q) = %v, want %v", mt, got, want)
		}
	}
}
