package render

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

func (self *Renderer) Rasterize(ops []Op) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: self.Size})
	for _, op := range ops {
		switch op := op.(type) {
		case Fill:
			draw.Draw(dst, op.Rect.Intersect(dst.Rect), image.NewUniform(op.Color), image.Point{}, draw.Src)
		case Text:
			self.text(dst, op)
		case Polygon:
			polygon(dst, op)
		case Picture:
			r := op.Image.Bounds().Sub(op.Image.Bounds().Min).Add(op.At)
			draw.Draw(dst, r, op.Image, op.Image.Bounds().Min, draw.Over)
		}
	}
	return dst
}

func (self *Renderer) text(dst *image.RGBA, op Text) {
	if op.Text == "" {
		return
	}
	face, ok := self.Fonts.Get(op.Font)
	if !ok {
		face = basicfont.Face7x13
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(op.Color),
		Face: face,
		Dot:  fixed.P(op.At.X, op.At.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(op.Text)
}

func polygon(dst *image.RGBA, op Polygon) {
	if len(op.Points) < 3 {
		return
	}
	size := dst.Rect.Size()
	z := vector.NewRasterizer(size.X, size.Y)
	z.MoveTo(float32(op.Points[0].X), float32(op.Points[0].Y))
	for _, p := range op.Points[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
	z.Draw(dst, dst.Rect, image.NewUniform(op.Color), image.Point{})
}
