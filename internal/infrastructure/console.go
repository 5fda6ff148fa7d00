package infrastructure

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	ColorReset   = "\x1b[0m"
	ColorRed     = "\x1b[31m"
	ColorGreen   = "\x1b[32m"
	ColorYellow  = "\x1b[33m"
	ColorBlue    = "\x1b[34m"
	ColorMagenta = "\x1b[35m"
	ColorCyan    = "\x1b[36m"
	ColorWhite   = "\x1b[37m"
	ColorBright  = "\x1b[1m"
)

var colorNames = map[string]string{
	"red":     ColorRed,
	"green":   ColorGreen,
	"yellow":  ColorYellow,
	"blue":    ColorBlue,
	"magenta": ColorMagenta,
	"cyan":    ColorCyan,
	"white":   ColorWhite,
}

// ResolveColor maps a profile color ("cyan", "Fore.CYAN", "LIGHTCYAN_EX" or a
// raw escape sequence) to an ANSI escape. Unknown names map to "".
func ResolveColor(name string) string {
	if strings.HasPrefix(name, "\x1b[") {
		return name
	}
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "fore.")
	key = strings.TrimPrefix(key, "light")
	key = strings.TrimSuffix(key, "_ex")
	return colorNames[key]
}

// Console writes operator notifications, colored when attached to a terminal
type Console struct {
	out   io.Writer
	color bool
	mu    sync.Mutex
}

func NewConsole() *Console {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return &Console{
		out:   colorable.NewColorableStdout(),
		color: tty,
	}
}

// NewPlainConsole writes uncolored lines to w
func NewPlainConsole(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) Printf(color, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	code := ResolveColor(color)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color && code != "" {
		fmt.Fprint(c.out, code+line+ColorReset+"\n")
		return
	}
	fmt.Fprintln(c.out, line)
}

func (c *Console) Banner() {
	rule := strings.Repeat("=", 60)
	c.Printf("cyan", "\n%s", rule)
	c.Printf("cyan", "         📬 Welcome to the Advanced Message Sender 📬")
	c.Printf("cyan", "%s", rule)
	c.Printf("yellow", "              Optimized for smooth communication")
	c.Printf("cyan", "%s\n", rule)
}
