package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Console renders status and the listening bar on a terminal line.
type Console struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
	barVisible    bool
	now           func() time.Time
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes notices with the wall clock time
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stderr)
	Writer io.Writer
}

func NewConsole(config ConsoleConfig) *Console {
	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}
	return &Console{
		writer:        writer,
		showTimestamp: config.ShowTimestamp,
		now:           time.Now,
	}
}

func (c *Console) UpdateStatus(recording bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if recording {
		fmt.Fprintf(c.writer, "\r[*] %-*s", barWidth+12, "recording")
		return
	}
	fmt.Fprintf(c.writer, "\r[ ] %-*s", barWidth+12, "idle")
}

func (c *Console) ShowBar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.barVisible = true
}

func (c *Console) HideBar() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.barVisible = false
	c.clearLine()
}

// UpdateLevel draws the bar. Levels arriving while the bar is hidden are
// ignored.
func (c *Console) UpdateLevel(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.barVisible {
		return
	}
	fmt.Fprintf(c.writer, "\r%s", levelBar(level))
}

func (c *Console) Notice(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLine()
	if c.showTimestamp {
		fmt.Fprintf(c.writer, "[%s] %s\n", c.now().Format("15:04:05"), msg)
		return
	}
	fmt.Fprintf(c.writer, "%s\n", msg)
}

func (c *Console) clearLine() {
	fmt.Fprintf(c.writer, "\r%*s\r", barWidth+16, "")
}

func levelBar(level float64) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * barWidth)
	return fmt.Sprintf("Level: [%-*s] %3.0f%%", barWidth, strings.Repeat("=", filled), level*100)
}
