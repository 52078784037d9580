package graphics

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/term"
)

// Fallback size when the output is not a terminal
const (
	defaultTermCols = 80
	defaultTermRows = 25
)

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow renders frames as truecolor half-block characters, two
// picture rows per text row
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool

	out io.Writer
	fd  int
	tty bool

	scaled *image.RGBA
	buf    strings.Builder
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a terminal "window" on stdout
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	fd := int(os.Stdout.Fd())
	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		out:     os.Stdout,
		fd:      fd,
		tty:     term.IsTerminal(fd),
	}, nil
}

// NewTerminalWindow creates a terminal window writing to out. Output that is
// not a terminal is rendered at the given character size.
func NewTerminalWindow(out io.Writer, cols, rows int) *TerminalWindow {
	return &TerminalWindow{
		width:   cols,
		height:  rows,
		running: true,
		out:     out,
		fd:      -1,
	}
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// TerminalWindow implementation

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	if w.tty {
		fmt.Fprintf(w.out, "\033]0;%s\007", title)
	}
}

// GetSize returns the character cell size used for rendering
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.cells()
}

func (w *TerminalWindow) cells() (cols, rows int) {
	if w.tty {
		if c, r, err := term.GetSize(w.fd); err == nil && c > 0 && r > 1 {
			return c, r
		}
	}
	cols, rows = w.width, w.height
	if cols <= 0 {
		cols = defaultTermCols
	}
	if rows <= 1 {
		rows = defaultTermRows
	}
	return cols, rows
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns nothing; keys are not read from the terminal
func (w *TerminalWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame scales the frame to the terminal and draws it with upper
// half blocks: foreground is the upper pixel, background the lower.
func (w *TerminalWindow) RenderFrame(img *image.RGBA) error {
	cols, rows := w.cells()
	// Keep the last row free for the cursor.
	ph := (rows - 1) * 2
	if w.scaled == nil || w.scaled.Bounds().Dx() != cols || w.scaled.Bounds().Dy() != ph {
		w.scaled = image.NewRGBA(image.Rect(0, 0, cols, ph))
	}
	draw.NearestNeighbor.Scale(w.scaled, w.scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	w.buf.Reset()
	w.buf.WriteString("\033[H")
	for y := 0; y < ph; y += 2 {
		for x := 0; x < cols; x++ {
			hi := w.scaled.RGBAAt(x, y)
			lo := w.scaled.RGBAAt(x, y+1)
			fmt.Fprintf(&w.buf, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀",
				hi.R, hi.G, hi.B, lo.R, lo.G, lo.B)
		}
		w.buf.WriteString("\033[0m\r\n")
	}

	_, err := io.WriteString(w.out, w.buf.String())
	return err
}

// Cleanup resets terminal colors and releases window resources
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	if w.tty {
		fmt.Fprint(w.out, "\033[0m\n")
	}
	return nil
}
