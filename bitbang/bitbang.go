// Package bitbang implements an SPI port by toggling GPIO pins in software.
//
// It is the fallback bus for displays wired to pins that are not backed by a
// hardware SPI controller. Throughput is bounded by how fast the host can
// drive its GPIOs, typically a few hundred kHz on a Raspberry Pi.
//
// Only 8-bit words are supported. Modes 0 through 3, spi.LSBFirst, spi.NoCS
// and spi.HalfDuplex are honored.
package bitbang

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/st7789/internal/syncutil"
)

// Port is a software SPI port.
type Port struct {
	mu syncutil.Mutex

	sck gpio.PinOut // Clock
	sdo gpio.PinOut // Controller out
	sdi gpio.PinIn  // Controller in (optional)
	cs  gpio.PinOut // Chip select, active low (optional)

	limit     physic.Frequency
	connected bool
	closed    bool
}

// New returns a Port driving sck and sdo.
//
// sdi may be nil for a write-only bus. cs may be nil when the chip select line
// is tied low or driven by the caller.
func New(sck, sdo gpio.PinOut, sdi gpio.PinIn, cs gpio.PinOut) (*Port, error) {
	if sck == nil || sck == gpio.INVALID {
		return nil, errors.New("bitbang: sck pin is required")
	}
	if sdo == nil || sdo == gpio.INVALID {
		return nil, errors.New("bitbang: sdo pin is required")
	}
	if sdi == gpio.INVALID {
		sdi = nil
	}
	if cs == gpio.INVALID {
		cs = nil
	}
	return &Port{sck: sck, sdo: sdo, sdi: sdi, cs: cs}, nil
}

// String implements spi.Port.
func (p *Port) String() string {
	return fmt.Sprintf("bitbang(SCK=%s, SDO=%s)", p.sck, p.sdo)
}

// LimitSpeed implements spi.Port.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f < 0 {
		return errors.New("bitbang: invalid speed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limit = f
	return nil
}

// Connect implements spi.Port.
//
// It can only be called once per Port. A zero frequency clocks the bus as
// fast as the pins can be toggled.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if f < 0 {
		return nil, errors.New("bitbang: invalid speed")
	}
	if bits != 8 {
		return nil, fmt.Errorf("bitbang: %d bits per word is not supported", bits)
	}
	if mode&^(spi.Mode3|spi.HalfDuplex|spi.NoCS|spi.LSBFirst) != 0 {
		return nil, fmt.Errorf("bitbang: invalid mode %v", mode)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("bitbang: port closed")
	}
	if p.connected {
		return nil, errors.New("bitbang: already connected")
	}
	if p.limit != 0 && (f == 0 || f > p.limit) {
		f = p.limit
	}

	c := &Conn{
		p:        p,
		freq:     f,
		mode:     mode,
		cpol:     mode&spi.Mode2 != 0,
		cpha:     mode&spi.Mode1 != 0,
		lsbFirst: mode&spi.LSBFirst != 0,
		noCS:     mode&spi.NoCS != 0 || p.cs == nil,
	}
	if f != 0 {
		c.half = f.Period() / 2
	}

	// Park the bus: clock idle, chip deselected.
	if err := p.sck.Out(c.idle()); err != nil {
		return nil, err
	}
	if !c.noCS {
		if err := p.cs.Out(gpio.High); err != nil {
			return nil, err
		}
	}
	p.connected = true
	return c, nil
}

// Close implements spi.PortCloser.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Conn is a connection on a software SPI port.
type Conn struct {
	p *Port

	freq physic.Frequency
	mode spi.Mode
	half time.Duration

	cpol     bool
	cpha     bool
	lsbFirst bool
	noCS     bool
}

// String implements conn.Conn.
func (c *Conn) String() string {
	return fmt.Sprintf("%s@%s", c.p, c.freq)
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex {
	if c.p.sdi == nil || c.mode&spi.HalfDuplex != 0 {
		return conn.Half
	}
	return conn.Full
}

// Tx implements conn.Conn.
//
// r may be nil. When it is not, it must be the same length as w.
func (c *Conn) Tx(w, r []byte) error {
	if err := c.check(w, r); err != nil {
		return err
	}
	c.p.mu.Lock()
	defer c.p.mu.Unlock()

	if err := c.selectChip(true); err != nil {
		return err
	}
	if err := c.txLocked(w, r); err != nil {
		_ = c.selectChip(false)
		return err
	}
	return c.selectChip(false)
}

// TxPackets implements spi.Conn.
//
// Chip select is released between packets unless the packet sets KeepCS.
func (c *Conn) TxPackets(pkts []spi.Packet) error {
	for i := range pkts {
		if pkts[i].BitsPerWord != 0 && pkts[i].BitsPerWord != 8 {
			return fmt.Errorf("bitbang: %d bits per word is not supported", pkts[i].BitsPerWord)
		}
		if err := c.check(pkts[i].W, pkts[i].R); err != nil {
			return err
		}
	}
	c.p.mu.Lock()
	defer c.p.mu.Unlock()

	selected := false
	for _, pkt := range pkts {
		if !selected {
			if err := c.selectChip(true); err != nil {
				return err
			}
			selected = true
		}
		if err := c.txLocked(pkt.W, pkt.R); err != nil {
			_ = c.selectChip(false)
			return err
		}
		if !pkt.KeepCS {
			if err := c.selectChip(false); err != nil {
				return err
			}
			selected = false
		}
	}
	if selected {
		return c.selectChip(false)
	}
	return nil
}

func (c *Conn) check(w, r []byte) error {
	if len(r) != 0 && len(w) != 0 && len(r) != len(w) {
		return errors.New("bitbang: w and r must be the same length")
	}
	if len(r) != 0 && c.p.sdi == nil {
		return errors.New("bitbang: read requested without an sdi pin")
	}
	if c.mode&spi.HalfDuplex != 0 && len(w) != 0 && len(r) != 0 {
		return errors.New("bitbang: half duplex port cannot read and write at once")
	}
	return nil
}

func (c *Conn) txLocked(w, r []byte) error {
	n := len(w)
	if n == 0 {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var out byte
		if len(w) != 0 {
			out = w[i]
		}
		in, err := c.transfer(out)
		if err != nil {
			return err
		}
		if len(r) != 0 {
			r[i] = in
		}
	}
	return nil
}

// transfer shifts one byte out and one byte in.
func (c *Conn) transfer(b byte) (byte, error) {
	var in byte
	for i := 0; i < 8; i++ {
		shift := 7 - i
		if c.lsbFirst {
			shift = i
		}
		bit, err := c.bit(b&(1<<shift) != 0)
		if err != nil {
			return 0, err
		}
		if bit {
			in |= 1 << shift
		}
	}
	return in, nil
}

// bit clocks a single bit. In CPHA=0 modes data is valid before the leading
// edge and sampled on it; in CPHA=1 modes it changes on the leading edge and
// is sampled on the trailing one.
func (c *Conn) bit(v bool) (bool, error) {
	if !c.cpha {
		if err := c.p.sdo.Out(gpio.Level(v)); err != nil {
			return false, err
		}
		c.wait()
		if err := c.p.sck.Out(!c.idle()); err != nil {
			return false, err
		}
		in := c.sample()
		c.wait()
		return in, c.p.sck.Out(c.idle())
	}
	if err := c.p.sck.Out(!c.idle()); err != nil {
		return false, err
	}
	if err := c.p.sdo.Out(gpio.Level(v)); err != nil {
		return false, err
	}
	c.wait()
	if err := c.p.sck.Out(c.idle()); err != nil {
		return false, err
	}
	in := c.sample()
	c.wait()
	return in, nil
}

func (c *Conn) sample() bool {
	if c.p.sdi == nil {
		return false
	}
	return bool(c.p.sdi.Read())
}

func (c *Conn) selectChip(on bool) error {
	if c.noCS {
		return nil
	}
	// Active low.
	return c.p.cs.Out(gpio.Level(!on))
}

// idle is the clock level between transfers.
func (c *Conn) idle() gpio.Level {
	return gpio.Level(c.cpol)
}

// wait busy-waits half a clock period. time.Sleep granularity is far coarser
// than a bit time at any useful bus speed.
func (c *Conn) wait() {
	if c.half <= 0 {
		return
	}
	for start := time.Now(); time.Since(start) < c.half; {
	}
}

var (
	_ spi.PortCloser = &Port{}
	_ spi.Conn       = &Conn{}
)
