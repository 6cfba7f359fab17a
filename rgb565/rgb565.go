// Package rgb565 provides a 16-bit color format optimized for the ST7789 display.
//
// Pixels are stored big-endian, two bytes per pixel, which is the order in
// which the controller consumes them after a memory write command.
package rgb565

import (
	"image"
	"image/color"
)

// Color is a packed 5-6-5 color value.
type Color uint16

// Common colors.
const (
	Black   Color = 0x0000
	Blue    Color = 0x001F
	Red     Color = 0xF800
	Green   Color = 0x07E0
	Cyan    Color = 0x07FF
	Magenta Color = 0xF81F
	Yellow  Color = 0xFFE0
	White   Color = 0xFFFF
)

// New packs 8-bit channels into a Color, dropping the low bits.
func New(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGBA converts the Color to standard RGBA.
// Each channel is widened by replicating its high bits into the low ones.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F

	r = (r5<<3 | r5>>2) * 0x101
	g = (g6<<2 | g6>>4) * 0x101
	b = (b5<<3 | b5>>2) * 0x101
	return r, g, b, 0xFFFF
}

// Hi returns the byte sent first on the wire.
func (c Color) Hi() byte {
	return byte(c >> 8)
}

// Lo returns the byte sent second on the wire.
func (c Color) Lo() byte {
	return byte(c)
}

// Swap exchanges the red and blue fields of c.
//
// Use it when the source color ordering differs from the panel's.
func Swap(c Color) Color {
	return c<<11 | c&0x07E0 | c>>11
}

// toRGB565 converts any color.Color to Color.
func toRGB565(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return Color((r>>11)<<11 | (g>>10)<<5 | b>>11)
}

// Model converts colors to Color.
var Model = color.ModelFunc(toRGB565)

// Image is a 16-bit image stored big-endian, 2 bytes per pixel.
type Image struct {
	Pix    []byte          // Pixel data (high byte first)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewImage creates a new Image with the specified bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r}
	}
	return &Image{
		Pix:    make([]byte, 2*w*h),
		Stride: 2 * w,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the Color of the pixel at (x, y).
func (p *Image) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	i := p.PixOffset(x, y)
	return Color(p.Pix[i])<<8 | Color(p.Pix[i+1])
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(Color))
}

// SetRGB565 sets the Color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Pix[i] = c.Hi()
	p.Pix[i+1] = c.Lo()
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}
