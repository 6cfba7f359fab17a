// Package rgb565 provides the 16-bit color format used by the ST7789 display controller.
//
// The ST7789 is configured for 16 bits per pixel (COLMOD 0x55). Each pixel is a
// 5-6-5 packed value: 5 bits red, 6 bits green, 5 bits blue, sent to the panel
// high byte first.
//
// Memory layout example for a 2-pixel row:
//
//	Pixels: 0       1
//	Values: 0xF800  0x07E0
//	Bytes:  0xF8 0x00 0x07 0xE0
//	        (0xF800 = pure red, 0x07E0 = pure green)
//
// This package provides:
//
// - Color: a packed 5-6-5 color value
// - Model: a color model for converting standard Go colors to Color
// - Swap: exchanges the red and blue fields, for BGR-wired panels
// - Image: an image.Image and draw.Image implementation laid out the way the panel expects
//
// Example usage:
//
//	// Create a 240x240 image
//	img := rgb565.NewImage(image.Rect(0, 0, 240, 240))
//
//	// Set a pixel to red
//	img.SetRGB565(10, 20, rgb565.New(0xFF, 0x00, 0x00))
//
//	// Use with standard Go image operations
//	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
package rgb565
