package shelf

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/simp-lee/epubcover"
)

const thumbnailQuality = 85

// maxThumbnailPixels caps the declared size of images decoded for scaling.
const maxThumbnailPixels = 50_000_000

// thumbnail scales c down to width pixels wide, keeping the aspect ratio,
// and re-encodes it as JPEG. Covers already narrow enough, too large to
// decode safely, or undecodable are returned unchanged.
func thumbnail(c epubcover.Cover, width int) (epubcover.Cover, bool) {
	if width <= 0 {
		return c, false
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	if err != nil || cfg.Width <= width || cfg.Height <= 0 {
		return c, false
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxThumbnailPixels {
		return c, false
	}

	src, _, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return c, false
	}
	b := src.Bounds()

	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return c, false
	}
	return epubcover.Cover{
		Path:      c.Path,
		MediaType: "image/jpeg",
		Data:      buf.Bytes(),
	}, true
}
