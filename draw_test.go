package st7789

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/devices/v3/st7789/rgb565"
)

func withPixels(w []sent, pixels []byte) []sent {
	return append(w, sent{cmd: cmdRAMWR, data: pixels})
}

func TestFillScreen(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.dev.FillScreen(0xF800))

	want := withPixels(window(0, 0, 239, 239), solid(0xF8, 0x00, 240*240))
	assert.Equal(t, want, h.bus.commands())

	var data int
	for _, tx := range h.bus.txs {
		if tx.dc == gpio.High && len(tx.w) > 4 {
			data++
			assert.LessOrEqual(t, len(tx.w), 4096)
			assert.Zero(t, len(tx.w)%32, "pixel transfers hold whole 16-pixel groups")
		}
	}
	// 115200 bytes: 28 full batches and one 512 byte tail.
	assert.Equal(t, 29, data)
}

func TestFillScreenSmallTransfers(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		w, h     int
		lastSize int
	}{
		{"whole groups", 64, 10, 10, 2 * (100 % 32)},
		{"below one group", 16, 20, 1, 2 * (20 % 8)},
		{"odd limit", 7, 5, 1, 2 * (5 % 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := &gpiotest.Pin{N: "DC", Num: 25}
			bus := &fakeBus{dc: dc, max: tt.max}
			dev, err := NewSPI(bus, dc, &Opts{Clock: &sleepClock{}})
			require.NoError(t, err)
			bus.reset()

			require.NoError(t, dev.FillRect(0, 0, tt.w, tt.h, rgb565.Blue))
			want := withPixels(window(0, 0, tt.w-1, tt.h-1), solid(0x00, 0x1F, tt.w*tt.h))
			assert.Equal(t, want, bus.commands())
			for _, tx := range bus.txs {
				assert.LessOrEqual(t, len(tx.w), tt.max)
			}
			last := bus.txs[len(bus.txs)-1]
			assert.Len(t, last.w, tt.lastSize)
		})
	}
}

func TestDrawPixel(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.dev.DrawPixel(10, 20, 0x1234))
	assert.Equal(t, withPixels(window(10, 20, 10, 20), []byte{0x12, 0x34}), h.bus.commands())
}

func TestDrawPixelOffset(t *testing.T) {
	h := newHarness(t, &Opts{Panel: &panel135x240})
	require.NoError(t, h.dev.DrawPixel(0, 0, rgb565.White))
	require.NoError(t, h.dev.DrawPixel(134, 239, rgb565.White))
	want := withPixels(window(52, 40, 52, 40), []byte{0xFF, 0xFF})
	want = append(want, withPixels(window(186, 279, 186, 279), []byte{0xFF, 0xFF})...)
	assert.Equal(t, want, h.bus.commands())
}

func TestDrawPixelOutOfBounds(t *testing.T) {
	h := newHarness(t, nil)
	for _, p := range []image.Point{{-1, 0}, {0, -1}, {240, 0}, {0, 240}, {1000, 1000}} {
		require.NoError(t, h.dev.DrawPixel(p.X, p.Y, rgb565.Red), "%v", p)
	}
	assert.Empty(t, h.bus.txs)
}

func TestFillRect(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       []sent
	}{
		{"inside", 10, 20, 3, 2, withPixels(window(10, 20, 12, 21), solid(0x07, 0xE0, 6))},
		{"clipped top left", -10, -10, 20, 30, withPixels(window(0, 0, 9, 19), solid(0x07, 0xE0, 200))},
		{"clipped bottom right", 230, 235, 20, 20, withPixels(window(230, 235, 239, 239), solid(0x07, 0xE0, 50))},
		{"zero width", 0, 0, 0, 10, nil},
		{"negative height", 0, 0, 10, -5, nil},
		{"off screen right", 300, 0, 10, 10, nil},
		{"off screen above", 0, -20, 10, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			require.NoError(t, h.dev.FillRect(tt.x, tt.y, tt.w, tt.h, rgb565.Green))
			assert.Equal(t, tt.want, h.bus.commands())
		})
	}
}

func TestFastLines(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.dev.DrawFastHLine(5, 7, 10, rgb565.Yellow))
	require.NoError(t, h.dev.DrawFastVLine(5, 7, 10, rgb565.Yellow))
	require.NoError(t, h.dev.DrawFastHLine(235, 7, 10, rgb565.Yellow))
	want := withPixels(window(5, 7, 14, 7), solid(0xFF, 0xE0, 10))
	want = append(want, withPixels(window(5, 7, 5, 16), solid(0xFF, 0xE0, 10))...)
	want = append(want, withPixels(window(235, 7, 239, 7), solid(0xFF, 0xE0, 5))...)
	assert.Equal(t, want, h.bus.commands())
}

func TestDraw(t *testing.T) {
	h := newHarness(t, nil)
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{G: 255, A: 255})
	src.Set(0, 1, color.RGBA{B: 255, A: 255})
	src.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	require.NoError(t, h.dev.Draw(image.Rect(10, 10, 12, 12), src, image.Point{}))
	want := withPixels(window(10, 10, 11, 11), []byte{0xF8, 0x00, 0x07, 0xE0, 0x00, 0x1F, 0xFF, 0xFF})
	assert.Equal(t, want, h.bus.commands())

	h.bus.reset()
	require.NoError(t, h.dev.Draw(image.Rect(-1, -1, 1, 1), src, image.Point{}))
	assert.Equal(t, withPixels(window(0, 0, 0, 0), []byte{0xFF, 0xFF}), h.bus.commands())

	h.bus.reset()
	require.NoError(t, h.dev.Draw(image.Rect(300, 300, 302, 302), src, image.Point{}))
	assert.Empty(t, h.bus.txs)
}

func TestDrawFullFrame(t *testing.T) {
	h := newHarness(t, nil)
	img := rgb565.NewImage(h.dev.Bounds())
	img.SetRGB565(0, 0, rgb565.Red)
	img.SetRGB565(239, 239, rgb565.Blue)

	require.NoError(t, h.dev.Draw(h.dev.Bounds(), img, image.Point{}))
	assert.Equal(t, withPixels(window(0, 0, 239, 239), img.Pix), h.bus.commands())
}

func TestWrite(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.dev.Write(make([]byte, 100))
	require.Error(t, err)
	assert.Empty(t, h.bus.txs)

	frame := solid(0xAB, 0xCD, 240*240)
	n, err := h.dev.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, withPixels(window(0, 0, 239, 239), frame), h.bus.commands())
}
