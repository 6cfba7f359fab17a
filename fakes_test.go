package st7789

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// tx is one transfer seen on the bus with the DC level at that time.
type tx struct {
	dc gpio.Level
	w  []byte
}

// fakeBus is an spi.Port whose connection records every write.
type fakeBus struct {
	mu  sync.Mutex
	dc  *gpiotest.Pin
	max int

	connected  bool
	freq       physic.Frequency
	mode       spi.Mode
	bits       int
	connectErr error
	txErr      error

	txs []tx
}

func (b *fakeBus) String() string                     { return "fakeBus" }
func (b *fakeBus) LimitSpeed(f physic.Frequency) error { return nil }

func (b *fakeBus) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	b.connected = true
	b.freq, b.mode, b.bits = f, mode, bits
	return b, nil
}

func (b *fakeBus) Duplex() conn.Duplex { return conn.Half }

func (b *fakeBus) MaxTxSize() int { return b.max }

func (b *fakeBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.txErr != nil {
		return b.txErr
	}
	if len(r) != 0 {
		return errors.New("fakeBus: read not supported")
	}
	b.txs = append(b.txs, tx{dc: b.dc.Read(), w: append([]byte(nil), w...)})
	return nil
}

func (b *fakeBus) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if err := b.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBus) reset() {
	b.mu.Lock()
	b.txs = nil
	b.mu.Unlock()
}

// sent is a command with everything written after it while DC was high.
type sent struct {
	cmd  byte
	data []byte
}

// commands groups the recorded transfers by command.
func (b *fakeBus) commands() []sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sent
	for _, t := range b.txs {
		if t.dc == gpio.Low {
			for _, c := range t.w {
				out = append(out, sent{cmd: c})
			}
			continue
		}
		if len(out) == 0 {
			out = append(out, sent{cmd: 0xFF})
		}
		out[len(out)-1].data = append(out[len(out)-1].data, t.w...)
	}
	return out
}

func (b *fakeBus) cmdBytes() []byte {
	var out []byte
	for _, s := range b.commands() {
		out = append(out, s.cmd)
	}
	return out
}

// sleepClock records sleeps instead of blocking.
type sleepClock struct {
	clockwork.Clock
	mu    sync.Mutex
	slept []time.Duration
}

func (c *sleepClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.mu.Unlock()
}

// levelLog records every level written to a pin.
type levelLog struct {
	*gpiotest.Pin
	levels []gpio.Level
}

func (l *levelLog) Out(v gpio.Level) error {
	l.levels = append(l.levels, v)
	return l.Pin.Out(v)
}

// countingLock counts how often the bus lock is taken.
type countingLock struct {
	sync.Mutex
	locks int
}

func (c *countingLock) Lock() {
	c.Mutex.Lock()
	c.locks++
}

type harness struct {
	dev   *Dev
	bus   *fakeBus
	dc    *gpiotest.Pin
	clock *sleepClock
}

// newHarness builds an initialized device and clears the init traffic.
func newHarness(t *testing.T, opts *Opts) *harness {
	t.Helper()
	dc := &gpiotest.Pin{N: "DC", Num: 25}
	bus := &fakeBus{dc: dc, max: 4096}
	clk := &sleepClock{Clock: clockwork.NewFakeClock()}
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	o.Clock = clk
	dev, err := NewSPI(bus, dc, &o)
	require.NoError(t, err)
	bus.reset()
	clk.slept = nil
	return &harness{dev: dev, bus: bus, dc: dc, clock: clk}
}

func window(x0, y0, x1, y1 int) []sent {
	return []sent{
		{cmd: cmdCASET, data: []byte{byte(x0 >> 8), byte(x0), byte(x1 >> 8), byte(x1)}},
		{cmd: cmdRASET, data: []byte{byte(y0 >> 8), byte(y0), byte(y1 >> 8), byte(y1)}},
	}
}

func solid(hi, lo byte, n int) []byte {
	b := make([]byte, 2*n)
	for i := 0; i < len(b); i += 2 {
		b[i], b[i+1] = hi, lo
	}
	return b
}
