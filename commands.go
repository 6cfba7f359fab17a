package st7789

import (
	"errors"
	"fmt"
	"time"
)

// Registers (from the ST7789V datasheet).
const (
	cmdNOP        = 0x00
	cmdSWRESET    = 0x01 // Software reset
	cmdSLPIN      = 0x10 // Sleep in
	cmdSLPOUT     = 0x11 // Sleep out
	cmdNORON      = 0x13 // Normal display mode on
	cmdINVOFF     = 0x20 // Display inversion off
	cmdINVON      = 0x21 // Display inversion on
	cmdDISPOFF    = 0x28 // Display off
	cmdDISPON     = 0x29 // Display on
	cmdCASET      = 0x2A // Column address set
	cmdRASET      = 0x2B // Row address set
	cmdRAMWR      = 0x2C // Memory write
	cmdVSCRDEF    = 0x33 // Vertical scrolling definition
	cmdMADCTL     = 0x36 // Memory data access control
	cmdVSCRSADD   = 0x37 // Vertical scroll start address
	cmdCOLMOD     = 0x3A // Interface pixel format
	cmdPOWSAVE    = 0xBC // Power saving mode
	cmdDLPOFFSAVE = 0xBD // Display off power save
)

// Memory data access control (MADCTL) bits.
const (
	madctlMY  = 0x80 // Row address order
	madctlMX  = 0x40 // Column address order
	madctlMV  = 0x20 // Row/column exchange
	madctlML  = 0x10 // Vertical refresh order
	madctlBGR = 0x08 // BGR panel wiring
	madctlRGB = 0x00
)

// cmdDelay is the high bit of a record's argument count. When set, the
// record's arguments are followed by one delay byte.
const cmdDelay = 0x80

// delayLong is the delay byte meaning 500ms rather than 255ms.
const delayLong = 255

// CommandTable is a compact byte encoding of a controller command sequence.
//
// The first byte is the number of records. Each record is a command byte, an
// argument count byte, the arguments, and, when the argument count has its
// high bit set, a delay byte in milliseconds. A delay byte of 255 means 500ms.
type CommandTable []byte

// 240x240 panels map to the top-left corner of the controller's 240x320 RAM.
const (
	xstart240x240 = 0
	ystart240x240 = 0
)

// Init240x240 initializes a 240x240 IPS panel for 16-bit color.
var Init240x240 = CommandTable{
	9, // 9 commands in list:
	cmdSWRESET, cmdDelay, // 1: Software reset, no args, w/delay
	150,                 //    150 ms delay
	cmdSLPOUT, cmdDelay, // 2: Out of sleep mode, no args, w/delay
	delayLong,                // 500 ms delay
	cmdCOLMOD, 1 | cmdDelay, // 3: Set color mode, 1 arg + delay:
	0x55,         //    16-bit color
	10,           //    10 ms delay
	cmdMADCTL, 1, // 4: Memory access ctrl (directions), 1 arg:
	madctlRGB,   //    Row addr/col addr, bottom to top refresh
	cmdCASET, 4, // 5: Column addr set, 4 args, no delay:
	0x00, xstart240x240, // XSTART
	(240 + xstart240x240) >> 8, (240 + xstart240x240) & 0xFF, // XEND
	cmdRASET, 4, // 6: Row addr set, 4 args, no delay:
	0x00, ystart240x240, // YSTART
	(240 + ystart240x240) >> 8, (240 + ystart240x240) & 0xFF, // YEND
	cmdINVON, cmdDelay, // 7: Inversion on, w/delay
	10,                //    10 ms delay
	cmdNORON, cmdDelay, // 8: Normal display on, no args, w/delay
	10,                  //    10 ms delay
	cmdDISPON, cmdDelay, // 9: Main screen turn on, no args, w/delay
	delayLong,           //    500 ms delay
}

// Command is one decoded record of a CommandTable.
type Command struct {
	Cmd   byte
	Args  []byte
	Delay time.Duration
}

// String returns a compact representation such as "0x3A [55] 10ms".
func (c Command) String() string {
	s := fmt.Sprintf("0x%02X [% X]", c.Cmd, c.Args)
	if c.Delay != 0 {
		s += " " + c.Delay.String()
	}
	return s
}

// delayOf returns the wait encoded by a delay byte.
func delayOf(b byte) time.Duration {
	if b == delayLong {
		return 500 * time.Millisecond
	}
	return time.Duration(b) * time.Millisecond
}

// Decode parses a table into its records, checking it against its length.
func Decode(t CommandTable) ([]Command, error) {
	if len(t) == 0 {
		return nil, errors.New("st7789: empty command table")
	}
	n := int(t[0])
	i := 1
	cmds := make([]Command, 0, n)
	for r := 0; r < n; r++ {
		if i+2 > len(t) {
			return nil, fmt.Errorf("st7789: command table truncated in record %d", r)
		}
		c := Command{Cmd: t[i]}
		argc := t[i+1]
		i += 2
		nargs := int(argc &^ cmdDelay)
		if i+nargs > len(t) {
			return nil, fmt.Errorf("st7789: command table truncated in record %d arguments", r)
		}
		if nargs > 0 {
			c.Args = append([]byte(nil), t[i:i+nargs]...)
		}
		i += nargs
		if argc&cmdDelay != 0 {
			if i >= len(t) {
				return nil, fmt.Errorf("st7789: command table truncated in record %d delay", r)
			}
			c.Delay = delayOf(t[i])
			i++
		}
		cmds = append(cmds, c)
	}
	if i != len(t) {
		return nil, fmt.Errorf("st7789: %d trailing bytes after command table", len(t)-i)
	}
	return cmds, nil
}

// Encode builds a table from records.
//
// Delays must be whole milliseconds between 1ms and 254ms, or exactly 500ms.
func Encode(cmds []Command) (CommandTable, error) {
	if len(cmds) > 0xFF {
		return nil, fmt.Errorf("st7789: %d commands exceed the table limit of 255", len(cmds))
	}
	t := CommandTable{byte(len(cmds))}
	for _, c := range cmds {
		if len(c.Args) >= cmdDelay {
			return nil, fmt.Errorf("st7789: command 0x%02X has %d args, limit is 127", c.Cmd, len(c.Args))
		}
		argc := byte(len(c.Args))
		var delay []byte
		switch {
		case c.Delay == 0:
		case c.Delay == 500*time.Millisecond:
			argc |= cmdDelay
			delay = []byte{delayLong}
		case c.Delay%time.Millisecond == 0 && c.Delay >= time.Millisecond && c.Delay < delayLong*time.Millisecond:
			argc |= cmdDelay
			delay = []byte{byte(c.Delay / time.Millisecond)}
		default:
			return nil, fmt.Errorf("st7789: command 0x%02X delay %s cannot be encoded", c.Cmd, c.Delay)
		}
		t = append(t, c.Cmd, argc)
		t = append(t, c.Args...)
		t = append(t, delay...)
	}
	return t, nil
}

// displayInit replays a command table. The table is trusted: a malformed one
// panics with an index out of range.
func (d *Dev) displayInit(t CommandTable) error {
	n := int(t[0])
	i := 1
	for ; n > 0; n-- {
		cmd := t[i]
		argc := t[i+1]
		i += 2
		nargs := int(argc &^ cmdDelay)
		args := t[i : i+nargs]
		i += nargs

		if err := d.transaction(func() error {
			return d.command(cmd, args...)
		}); err != nil {
			return fmt.Errorf("st7789: command 0x%02X: %w", cmd, err)
		}

		if argc&cmdDelay != 0 {
			ms := delayOf(t[i])
			i++
			d.log.Trace().Hex("cmd", []byte{cmd}).Hex("args", args).Dur("delay", ms).Msg("st7789: command")
			d.clock.Sleep(ms)
			continue
		}
		d.log.Trace().Hex("cmd", []byte{cmd}).Hex("args", args).Msg("st7789: command")
	}
	return nil
}
