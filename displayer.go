package st7789

import (
	"errors"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/st7789/rgb565"
	"tinygo.org/x/drivers"
)

var (
	_ display.Drawer    = (*Dev)(nil)
	_ drivers.Displayer = (*Dev)(nil)
)

// Size returns the current size of the display, taking rotation into account.
func (d *Dev) Size() (x, y int16) {
	return int16(d.rect.Dx()), int16(d.rect.Dy())
}

// SetPixel draws one pixel. It has no error return, so failures are logged.
func (d *Dev) SetPixel(x, y int16, c color.RGBA) {
	if err := d.DrawPixel(int(x), int(y), rgb565.New(c.R, c.G, c.B)); err != nil {
		d.log.Warn().Err(err).Int16("x", x).Int16("y", y).Msg("st7789: set pixel")
	}
}

// Display does nothing; pixels go straight to the controller.
func (d *Dev) Display() error {
	return nil
}

// FillRectangle fills a rectangle, clipped to the display.
func (d *Dev) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	return d.FillRect(int(x), int(y), int(width), int(height), rgb565.New(c.R, c.G, c.B))
}

// Rotation returns the current rotation.
func (d *Dev) Rotation() drivers.Rotation {
	return d.rotation
}

// SetRotation rotates the display clockwise. Mirrored rotations are not
// supported.
func (d *Dev) SetRotation(rotation drivers.Rotation) error {
	if d.halted {
		return ErrHalted
	}
	p := &d.panel
	madctl := byte(madctlRGB)
	w, h := p.W, p.H
	var xs, ys int
	switch rotation {
	case drivers.Rotation0:
		xs, ys = p.ColStart, p.RowStart
	case drivers.Rotation90:
		madctl = madctlMX | madctlMV
		w, h = h, w
		xs, ys = p.RowStart, p.ColStart
	case drivers.Rotation180:
		madctl = madctlMX | madctlMY
		xs, ys = p.RAMW-p.W-p.ColStart, p.RAMH-p.H-p.RowStart
	case drivers.Rotation270:
		madctl = madctlMY | madctlMV
		w, h = h, w
		xs, ys = p.RAMH-p.H-p.RowStart, p.RAMW-p.W-p.ColStart
	default:
		return errors.New("st7789: unsupported rotation")
	}
	madctl |= d.madctl & madctlBGR

	if err := d.transaction(func() error {
		return d.command(cmdMADCTL, madctl)
	}); err != nil {
		return err
	}
	d.madctl = madctl
	d.rotation = rotation
	d.xstart, d.ystart = xs, ys
	d.rect = image.Rect(0, 0, w, h)
	d.log.Debug().Uint8("madctl", madctl).Int("xstart", xs).Int("ystart", ys).Msg("st7789: rotation")
	return nil
}

// SetScrollArea sets the vertically scrolled region between fixed top and
// bottom areas, in visible rows. Failures are logged.
func (d *Dev) SetScrollArea(topFixedArea, bottomFixedArea int16) {
	if d.halted {
		d.log.Warn().Err(ErrHalted).Msg("st7789: scroll area")
		return
	}
	p := &d.panel
	top := int(topFixedArea) + p.RowStart
	bottom := int(bottomFixedArea) + p.RAMH - p.H - p.RowStart
	if d.rotation == drivers.Rotation180 {
		top, bottom = bottom, top
	}
	vsa := p.RAMH - top - bottom
	err := d.transaction(func() error {
		return d.command(cmdVSCRDEF,
			byte(top>>8), byte(top),
			byte(vsa>>8), byte(vsa),
			byte(bottom>>8), byte(bottom))
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("st7789: scroll area")
	}
}

// SetScroll sets the first RAM row shown at the top of the scroll area.
// Failures are logged.
func (d *Dev) SetScroll(line int16) {
	if d.halted {
		d.log.Warn().Err(ErrHalted).Msg("st7789: scroll")
		return
	}
	l := int(line)
	if d.rotation == drivers.Rotation180 {
		l = d.panel.RAMH - 1 - d.ystart - l
	}
	err := d.transaction(func() error {
		return d.command(cmdVSCRSADD, byte(l>>8), byte(l))
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("st7789: scroll")
	}
}

// StopScroll returns the display to normal mode, ending scrolling.
func (d *Dev) StopScroll() {
	if d.halted {
		d.log.Warn().Err(ErrHalted).Msg("st7789: stop scroll")
		return
	}
	err := d.transaction(func() error {
		return d.command(cmdNORON)
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("st7789: stop scroll")
	}
}
