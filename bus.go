package st7789

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/devices/v3/st7789/rgb565"
)

// StartWrite begins a bus transaction: it takes the bus lock and selects the
// chip. Every drawing call brackets its traffic this way so that other users
// of a shared bus cannot interleave with a pixel stream.
//
// Use StartWrite and EndWrite around raw traffic issued outside this driver.
func (d *Dev) StartWrite() error {
	d.lock.Lock()
	if d.cs != nil {
		if err := d.cs.Out(gpio.Low); err != nil {
			d.lock.Unlock()
			return err
		}
	}
	return nil
}

// EndWrite deselects the chip and releases the bus lock.
func (d *Dev) EndWrite() error {
	defer d.lock.Unlock()
	if d.cs != nil {
		return d.cs.Out(gpio.High)
	}
	return nil
}

// transaction runs fn between StartWrite and EndWrite.
func (d *Dev) transaction(fn func() error) error {
	if err := d.StartWrite(); err != nil {
		return err
	}
	err := fn()
	if endErr := d.EndWrite(); err == nil {
		err = endErr
	}
	return err
}

// command sends a command byte followed by its arguments.
func (d *Dev) command(cmd byte, args ...byte) error {
	if err := d.sendCommand(cmd); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	return d.sendData(args)
}

// sendCommand sends a single byte with DC low.
func (d *Dev) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	d.cmdBuf[0] = cmd
	return d.c.Tx(d.cmdBuf[:], nil)
}

// sendData sends data with DC high, split to the connection's transfer limit.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) != 0 {
		chunk := data
		if len(chunk) > d.maxTxSize {
			chunk = data[:d.maxTxSize]
		}
		if err := d.c.Tx(chunk, nil); err != nil {
			return err
		}
		data = data[len(chunk):]
	}
	return nil
}

// streamColor sends n copies of c. The batch buffer holds a whole number of
// 16-pixel groups; whatever is left over goes out as one short transfer.
func (d *Dev) streamColor(c rgb565.Color, n int) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	hi, lo := c.Hi(), c.Lo()
	if d.batch[0] != hi || d.batch[1] != lo {
		for i := 0; i < len(d.batch); i += 2 {
			d.batch[i] = hi
			d.batch[i+1] = lo
		}
	}
	per := len(d.batch) / 2
	for ; n >= per; n -= per {
		if err := d.c.Tx(d.batch, nil); err != nil {
			return err
		}
	}
	if n > 0 {
		return d.c.Tx(d.batch[:2*n], nil)
	}
	return nil
}
