package st7789

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/st7789/internal/syncutil"
	"tinygo.org/x/drivers"
)

// resetPulse is how long each level of the reset pulse is held.
const resetPulse = 50 * time.Millisecond

// ErrHalted is returned by drawing calls after Halt.
var ErrHalted = errors.New("st7789: halted")

// Panel describes how a glass panel is wired to the controller's memory.
type Panel struct {
	W, H int // Visible size in pixels

	// Controller RAM size. The ST7789 always has 240x320.
	RAMW, RAMH int

	// Origin of the visible area in controller RAM.
	ColStart, RowStart int

	// Init is replayed once after reset.
	Init CommandTable
}

// Panel240x240 is the common 1.3" and 1.54" 240x240 IPS module.
var Panel240x240 = Panel{
	W:        240,
	H:        240,
	RAMW:     240,
	RAMH:     320,
	ColStart: xstart240x240,
	RowStart: ystart240x240,
	Init:     Init240x240,
}

func (p *Panel) validate() error {
	if p.RAMW <= 0 || p.RAMH <= 0 {
		return errors.New("st7789: panel RAM size must be positive")
	}
	if p.W <= 0 || p.H <= 0 {
		return errors.New("st7789: panel size must be positive")
	}
	if p.ColStart < 0 || p.RowStart < 0 || p.ColStart+p.W > p.RAMW || p.RowStart+p.H > p.RAMH {
		return fmt.Errorf("st7789: %dx%d panel at (%d,%d) does not fit %dx%d RAM",
			p.W, p.H, p.ColStart, p.RowStart, p.RAMW, p.RAMH)
	}
	if _, err := Decode(p.Init); err != nil {
		return err
	}
	return nil
}

// Opts is the configuration for the ST7789 display.
type Opts struct {
	// Panel geometry and init sequence (default: Panel240x240)
	Panel *Panel

	// Bus settings. The module's reference wiring runs in mode 2.
	Freq physic.Frequency // SPI clock (default: 8MHz)
	Mode spi.Mode

	// BGR selects BGR subpixel order in MADCTL.
	BGR bool

	// Optional pins, nil if not used
	RST gpio.PinOut // Reset, active low
	CS  gpio.PinOut // Chip select, active low, when not driven by the SPI port

	// Lock is taken for every bus transaction. Share it with other drivers
	// on the same bus. Defaults to a lock private to the device.
	Lock sync.Locker

	// Logger receives init and command traces (default: disabled).
	Logger *zerolog.Logger

	// Clock provides the post-command delays (default: real time).
	Clock clockwork.Clock
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Panel: &Panel240x240,
	Freq:  8 * physic.MegaHertz,
	Mode:  spi.Mode2,
}

// initState tracks the init sequence. It only moves forward.
type initState uint8

const (
	stateUninitialized initState = iota
	stateResetPulsed
	stateTableReplayed
	stateMemoryAccessSet
	stateReady
)

func (s initState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateResetPulsed:
		return "reset-pulsed"
	case stateTableReplayed:
		return "command-table-replayed"
	case stateMemoryAccessSet:
		return "memory-access-control-set"
	case stateReady:
		return "ready"
	}
	return fmt.Sprintf("initState(%d)", uint8(s))
}

// Dev is the device handle for the ST7789 display.
type Dev struct {
	// Communication
	c         spi.Conn
	dc        gpio.PinOut // Data/Command pin
	cs        gpio.PinOut // Chip select (optional)
	rst       gpio.PinOut // Reset pin (optional)
	lock      sync.Locker
	maxTxSize int
	cmdBuf    [1]byte
	batch     []byte // Solid color run, a whole number of 16-pixel groups

	// Display geometry
	panel          Panel
	rect           image.Rectangle
	xstart, ystart int
	rotation       drivers.Rotation
	madctl         byte

	log   zerolog.Logger
	clock clockwork.Clock

	// State
	state  initState
	halted bool
}

// NewSPI creates a new ST7789 device connected via SPI and initializes it.
//
// The dc (Data/Command) GPIO pin must be provided. opts can be nil to use
// DefaultOpts.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if dc == nil || dc == gpio.INVALID {
		return nil, errors.New("st7789: dc pin is required")
	}
	panel := Panel240x240
	if opts.Panel != nil {
		panel = *opts.Panel
	}
	if err := panel.validate(); err != nil {
		return nil, err
	}

	freq := opts.Freq
	if freq == 0 {
		freq = DefaultOpts.Freq
	}
	c, err := p.Connect(freq, opts.Mode, 8)
	if err != nil {
		return nil, fmt.Errorf("st7789: connect: %w", err)
	}

	// Get the maxTxSize from the conn if it implements the conn.Limits
	// interface, otherwise use 4096 bytes.
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize <= 0 {
		maxTxSize = 4096
	}

	d := &Dev{
		c:         c,
		dc:        dc,
		cs:        opts.CS,
		rst:       opts.RST,
		lock:      opts.Lock,
		maxTxSize: maxTxSize,
		batch:     make([]byte, batchSize(maxTxSize)),
		panel:     panel,
		rect:      image.Rect(0, 0, panel.W, panel.H),
		log:       zerolog.Nop(),
		clock:     opts.Clock,
	}
	if d.cs == gpio.INVALID {
		d.cs = nil
	}
	if d.rst == gpio.INVALID {
		d.rst = nil
	}
	if d.lock == nil {
		d.lock = &syncutil.Mutex{}
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if opts.BGR {
		d.madctl = madctlBGR
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// batchSize is the largest multiple of 16 pixels (32 bytes) that fits in one
// transfer. Connections too small for a group get as many whole pixels as
// fit, and never less than one.
func batchSize(maxTxSize int) int {
	if n := maxTxSize &^ 31; n >= 32 {
		return n
	}
	if n := maxTxSize &^ 1; n >= 2 {
		return n
	}
	return 2
}

func (d *Dev) setState(s initState) {
	d.state = s
	d.log.Debug().Stringer("state", s).Msg("st7789: init")
}

// init resets the controller and brings it to the ready state.
func (d *Dev) init() error {
	d.setState(stateUninitialized)

	if err := d.reset(); err != nil {
		return err
	}
	d.setState(stateResetPulsed)

	if err := d.displayInit(d.panel.Init); err != nil {
		return err
	}
	d.setState(stateTableReplayed)

	if err := d.transaction(func() error {
		return d.command(cmdMADCTL, d.madctl)
	}); err != nil {
		return fmt.Errorf("st7789: memory access control: %w", err)
	}
	d.setState(stateMemoryAccessSet)

	d.xstart, d.ystart = d.panel.ColStart, d.panel.RowStart
	d.setState(stateReady)
	return nil
}

// reset pulses RST with the chip selected so the controller listens. It is a
// no-op without a reset pin; the SWRESET in the init table covers that case.
func (d *Dev) reset() error {
	if d.rst == nil {
		return nil
	}
	return d.transaction(func() error {
		for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
			if err := d.rst.Out(l); err != nil {
				return fmt.Errorf("st7789: failed to drive RST %s: %w", l, err)
			}
			d.clock.Sleep(resetPulse)
		}
		return nil
	})
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st7789.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// Invert turns display color inversion on or off.
//
// IPS panels need inversion on for colors to render normally; Init240x240
// enables it.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return ErrHalted
	}
	cmd := byte(cmdINVOFF)
	if invert {
		cmd = cmdINVON
	}
	return d.transaction(func() error {
		return d.command(cmd)
	})
}

// PowerMode is a bitmask selecting the controller's power saving behavior.
type PowerMode byte

// Power modes. They combine: PowerIdle|PowerNormal|PowerDisplayOff.
const (
	// PowerOff is the full power-down path.
	PowerOff PowerMode = 0
	// PowerIdle disables power saving in idle mode.
	PowerIdle PowerMode = 1 << 0
	// PowerNormal disables power saving in normal mode.
	PowerNormal PowerMode = 1 << 1
	// PowerDisplayOff also enables display-off power saving.
	PowerDisplayOff PowerMode = 1 << 2
)

// PowerSave programs the power saving registers.
//
// This is a direct register mapping; the previous mode is not tracked.
func (d *Dev) PowerSave(mode PowerMode) error {
	if d.halted {
		return ErrHalted
	}
	return d.transaction(func() error {
		if mode == PowerOff {
			if err := d.command(cmdPOWSAVE, 0xEC|3); err != nil {
				return err
			}
			return d.command(cmdDLPOFFSAVE, 0xFF)
		}
		is := byte(1)
		if mode&PowerIdle != 0 {
			is = 0
		}
		ns := byte(2)
		if mode&PowerNormal != 0 {
			ns = 0
		}
		if err := d.command(cmdPOWSAVE, 0xEC|ns|is); err != nil {
			return err
		}
		if mode&PowerDisplayOff != 0 {
			return d.command(cmdDLPOFFSAVE, 0xFE)
		}
		return nil
	})
}

// Halt turns the display off and puts the controller to sleep.
// After calling Halt, drawing calls return ErrHalted. If the controller
// could not be put to sleep the device stays usable.
func (d *Dev) Halt() error {
	if err := d.transaction(func() error {
		if err := d.command(cmdDISPOFF); err != nil {
			return err
		}
		return d.command(cmdSLPIN)
	}); err != nil {
		return err
	}
	d.halted = true
	return nil
}
