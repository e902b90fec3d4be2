package assets

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// QRPrefix marks hero source as text to encode instead of file path.
const QRPrefix = "qr:"

func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Annotatef(err, "decode %s", path)
	}
	return img, nil
}

// QR renders text as square code, side is largest that fits size.
func QR(text string, size image.Point) (image.Image, error) {
	if text == "" {
		return nil, errors.NotValidf("QR empty text")
	}
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, errors.Annotate(err, "QR")
	}
	side := size.X
	if size.Y < side {
		side = size.Y
	}
	return qr.Image(side), nil
}

// Hero resolves hero screen source: "qr:text" or image path relative to dir,
// fitted to display size.
func Hero(dir, source string, size image.Point) (image.Image, error) {
	if strings.HasPrefix(source, QRPrefix) {
		img, err := QR(strings.TrimPrefix(source, QRPrefix), size)
		if err != nil {
			return nil, err
		}
		return Fit(img, size), nil
	}
	path := source
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return Fit(img, size), nil
}

// Fit scales img to largest size within bounds keeping aspect ratio.
// Result origin is (0,0), caller centres it.
func Fit(img image.Image, bounds image.Point) *image.RGBA {
	src := img.Bounds()
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 || bounds.X <= 0 || bounds.Y <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	w, h := bounds.X, sh*bounds.X/sw
	if h > bounds.Y {
		h = bounds.Y
		w = sw * bounds.Y / sh
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == sw && h == sh {
		draw.Draw(dst, dst.Rect, img, src.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Rect, img, src, draw.Src, nil)
	return dst
}
