package graphics

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements the Window interface for headless operation. It
// keeps the last frame and can save chosen frames as PPM files.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int
	outputPath string
	saveFrames map[int]bool
	last       *image.RGBA
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window"
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	return &HeadlessWindow{
		title:      title,
		width:      width,
		height:     height,
		running:    true,
		outputPath: ".",
		saveFrames: make(map[int]bool),
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// HeadlessWindow implementation

// SetTitle sets the window title
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns nothing; there is no input in headless mode
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame keeps a copy of the frame and saves it if requested
func (w *HeadlessWindow) RenderFrame(img *image.RGBA) error {
	w.frameCount++

	if w.last == nil || w.last.Bounds() != img.Bounds() {
		w.last = image.NewRGBA(img.Bounds())
	}
	copy(w.last.Pix, img.Pix)

	if w.saveFrames[w.frameCount] {
		filename := filepath.Join(w.outputPath, fmt.Sprintf("frame_%04d.ppm", w.frameCount))
		return savePPM(img, filename)
	}
	return nil
}

// savePPM writes img as a binary PPM file
func savePPM(img *image.RGBA, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %v", filename, err)
	}
	defer file.Close()

	b := img.Bounds()
	out := bufio.NewWriter(file)
	fmt.Fprintf(out, "P6\n%d %d\n255\n", b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			out.Write(img.Pix[i : i+3])
		}
	}
	return out.Flush()
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// SetOutputPath sets the directory frame dumps are written to
func (w *HeadlessWindow) SetOutputPath(path string) {
	w.outputPath = path
}

// SaveFrames marks frame numbers (1-based) to be written as PPM files
func (w *HeadlessWindow) SaveFrames(frames ...int) {
	for _, f := range frames {
		w.saveFrames[f] = true
	}
}

// GetFrameCount returns the number of frames rendered
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// LastFrame returns a copy of the last rendered frame, or nil
func (w *HeadlessWindow) LastFrame() *image.RGBA {
	return w.last
}
