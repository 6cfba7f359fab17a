package st7789

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/devices/v3/st7789/rgb565"
)

// setAddrWindow selects the inclusive rectangle (x0,y0)-(x1,y1) as the target
// of the next pixel stream and opens memory write. Nothing but pixel data may
// follow until the stream ends.
func (d *Dev) setAddrWindow(x0, y0, x1, y1 int) error {
	xs, xe := x0+d.xstart, x1+d.xstart
	ys, ye := y0+d.ystart, y1+d.ystart

	if err := d.command(cmdCASET, byte(xs>>8), byte(xs), byte(xe>>8), byte(xe)); err != nil {
		return err
	}
	if err := d.command(cmdRASET, byte(ys>>8), byte(ys), byte(ye>>8), byte(ye)); err != nil {
		return err
	}
	return d.command(cmdRAMWR)
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// DrawPixel sets one pixel. Coordinates outside the display are ignored.
func (d *Dev) DrawPixel(x, y int, c rgb565.Color) error {
	if d.halted {
		return ErrHalted
	}
	if !(image.Point{X: x, Y: y}.In(d.rect)) {
		return nil
	}
	return d.transaction(func() error {
		if err := d.setAddrWindow(x, y, x, y); err != nil {
			return err
		}
		return d.streamColor(c, 1)
	})
}

// DrawFastHLine draws a horizontal line of w pixels starting at (x, y),
// clipped to the display.
func (d *Dev) DrawFastHLine(x, y, w int, c rgb565.Color) error {
	return d.FillRect(x, y, w, 1, c)
}

// DrawFastVLine draws a vertical line of h pixels starting at (x, y),
// clipped to the display.
func (d *Dev) DrawFastVLine(x, y, h int, c rgb565.Color) error {
	return d.FillRect(x, y, 1, h, c)
}

// FillRect fills a w x h rectangle at (x, y), clipped to the display.
// Nothing is sent if the clipped rectangle is empty.
func (d *Dev) FillRect(x, y, w, h int, c rgb565.Color) error {
	if d.halted {
		return ErrHalted
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	r := image.Rect(x, y, x+w, y+h).Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	return d.transaction(func() error {
		if err := d.setAddrWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1); err != nil {
			return err
		}
		return d.streamColor(c, r.Dx()*r.Dy())
	})
}

// FillScreen fills the whole display with c.
func (d *Dev) FillScreen(c rgb565.Color) error {
	return d.FillRect(0, 0, d.rect.Dx(), d.rect.Dy(), c)
}

// Draw draws an image onto the display.
// The dst rectangle is clipped to the display; src is read starting at sp.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	r := dst.Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	sp = sp.Add(r.Min.Sub(dst.Min))

	// Fast path: a full-screen image already in wire format.
	if img, ok := src.(*rgb565.Image); ok && r == d.rect && sp == img.Rect.Min && img.Rect.Size() == d.rect.Size() {
		return d.writeRect(r, img.Pix)
	}

	buf := rgb565.NewImage(image.Rectangle{Max: r.Size()})
	draw.Draw(buf, buf.Rect, src, sp, draw.Src)
	return d.writeRect(r, buf.Pix)
}

// Write writes a raw frame: big-endian RGB565, row major, 2 bytes per pixel.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, ErrHalted
	}
	if len(pixels) != 2*d.rect.Dx()*d.rect.Dy() {
		return 0, errors.New("st7789: invalid buffer size")
	}
	if err := d.writeRect(d.rect, pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// writeRect streams pixels into r.
func (d *Dev) writeRect(r image.Rectangle, pixels []byte) error {
	return d.transaction(func() error {
		if err := d.setAddrWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1); err != nil {
			return err
		}
		return d.sendData(pixels)
	})
}
