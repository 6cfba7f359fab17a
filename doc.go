// Package st7789 controls a ST7789 TFT display via SPI.
//
// The ST7789 is a 262K color TFT controller with a 240×320 frame memory. This
// driver runs it in 16-bit RGB565 mode and streams pixels straight to the
// controller: there is no frame buffer on the host, so every drawing call
// goes to the wire immediately.
// This driver implements the display.Drawer interface from periph.io and the
// drivers.Displayer interface from TinyGo.
//
// # Display Characteristics
//
// - 16-bit RGB565 color, sent most significant byte first
// - 240×320 controller RAM, of which a panel shows a window
// - Hardware rotation in 90° steps
// - Vertical hardware scrolling
// - Display inversion (required by most IPS panels)
// - Power saving registers
//
// # Hardware Connection
//
// Connect the ST7789 display to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL         → SPI Clock (SCLK)
//	SDA         → SPI Data (MOSI)
//	DC          → GPIO (any available pin)
//	RES         → Optional: GPIO for hardware reset
//	CS          → SPI Chip Select, a GPIO, or GND
//	BLK         → 3.3V or a GPIO for the backlight
//
// The common 240×240 modules have no CS pin and only respond in SPI mode 2,
// which is why DefaultOpts uses spi.Mode2.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/st7789"
//		"periph.io/x/devices/v3/st7789/rgb565"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		spiBus, _ := spireg.Open("")
//
//		// Get Data/Command and reset pins
//		dcPin := gpioreg.ByName("GPIO25")
//		rstPin := gpioreg.ByName("GPIO27")
//
//		opts := st7789.DefaultOpts
//		opts.RST = rstPin
//		dev, _ := st7789.NewSPI(spiBus, dcPin, &opts)
//		defer dev.Halt()
//
//		dev.FillScreen(rgb565.Black)
//		dev.FillRect(20, 20, 100, 60, rgb565.Red)
//		dev.DrawFastHLine(0, 120, 240, rgb565.White)
//		dev.DrawPixel(120, 200, rgb565.Green)
//	}
//
// NewSPI pulses RST (when provided) and replays the panel's init command
// table, then programs memory access control. Each step of the table is sent
// as its own bus transaction; the delays between steps are taken with the bus
// released.
//
// # Colors
//
// Colors are rgb565.Color values. Use rgb565.New to convert from 8-bit
// components, or any color.Color through rgb565.Model:
//
//	orange := rgb565.New(255, 165, 0)
//
// Some panels are wired BGR; set Opts.BGR for those. Panels with swapped
// byte order can use rgb565.Swap.
//
// # Drawing Modes
//
// ## Primitives
//
// DrawPixel, DrawFastHLine, DrawFastVLine, FillRect and FillScreen address a
// window and stream a solid color into it. Everything is clipped to the
// display; a shape entirely off screen sends nothing.
//
// ## Images
//
// Draw converts any image.Image to RGB565 and sends the clipped rectangle:
//
//	dev.Draw(dev.Bounds(), myImage, image.Point{})
//
// ## Full-Frame Update
//
// Write sends a raw RGB565 frame, 2 bytes per pixel, row major:
//
//	pixels := make([]byte, 240*240*2)
//	// ... fill pixels ...
//	dev.Write(pixels)
//
// # Text
//
// Dev is a drivers.Displayer, so TinyGo's font and terminal packages draw on
// it directly:
//
//	tinyfont.WriteLine(dev, &proggy.TinySZ8pt7b, 10, 20, "hello", color.RGBA{R: 255, A: 255})
//
// # Shared Buses
//
// Every call takes Opts.Lock for the duration of its traffic. Pass the same
// lock to other drivers on the bus. StartWrite and EndWrite expose the same
// bracket for raw traffic.
//
// Build with -tags deadlock to replace the default lock with one that reports
// lock-order problems.
//
// # Software SPI
//
// The bitbang subpackage provides an spi.Port over plain GPIO pins for boards
// without a free SPI controller:
//
//	port, _ := bitbang.New(gpioreg.ByName("GPIO11"), gpioreg.ByName("GPIO10"), nil, nil)
//	dev, _ := st7789.NewSPI(port, dcPin, &st7789.DefaultOpts)
//
// # Datasheet
//
// For detailed register descriptions and timing information, see:
// http://www.newhavendisplay.com/appnotes/datasheets/LCDs/ST7789V.pdf
//
// # Compatibility with periph.io
//
// This driver implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
package st7789
