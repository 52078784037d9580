// Package debug provides frame and graphics-memory capture: GIF screenshots,
// GIF movies, GRAM sheets and text dumps of composed frames.
package debug

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/image/draw"

	"gointv/internal/graphics"
	"gointv/internal/stic"
)

// movieDelay is the GIF frame delay in 1/100 s, close to 60 Hz
const movieDelay = 2

// FrameDumper writes captures of the chip's output to a directory
type FrameDumper struct {
	outputDir    string
	shotDir      string // screenshots, defaults to outputDir
	dumpEnabled  bool
	frameCount   uint64 // text dumps written
	maxDumps     int
	dumpInterval int
	scale        int
	palette      graphics.Palette

	recording      bool
	movie          *gif.GIF
	maxMovieFrames int

	shots     int
	movies    int
	gramShots int
}

// NewFrameDumper creates a frame dumper writing to outputDir
func NewFrameDumper(outputDir string, p graphics.Palette) *FrameDumper {
	return &FrameDumper{
		outputDir:      outputDir,
		maxDumps:       10,
		dumpInterval:   1,
		scale:          2,
		palette:        p,
		maxMovieFrames: 60 * 60,
	}
}

// Enable activates text frame dumps
func (fd *FrameDumper) Enable() error {
	if err := fd.ensureDir(); err != nil {
		return err
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates text frame dumps
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of frames to dump
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval < 1 {
		interval = 1
	}
	fd.dumpInterval = interval
}

// SetScale sets the pixel scale of GIF captures
func (fd *FrameDumper) SetScale(scale int) {
	if scale < 1 {
		scale = 1
	}
	fd.scale = scale
}

// SetScreenshotDir sends screenshots to a directory of their own
func (fd *FrameDumper) SetScreenshotDir(dir string) {
	fd.shotDir = dir
}

// SetPalette sets the palette used for frame captures
func (fd *FrameDumper) SetPalette(p graphics.Palette) {
	fd.palette = p
}

// SetMaxMovieFrames caps a movie's length; recording stops when it is hit
func (fd *FrameDumper) SetMaxMovieFrames(n int) {
	fd.maxMovieFrames = n
}

func (fd *FrameDumper) ensureDir() error {
	return ensureDir(fd.outputDir)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %v", err)
	}
	return nil
}

// Active reports whether a movie is being recorded
func (fd *FrameDumper) Active() bool {
	return fd.recording
}

// StartCapture begins recording a GIF movie
func (fd *FrameDumper) StartCapture() error {
	if fd.recording {
		return fmt.Errorf("capture already in progress")
	}
	if err := fd.ensureDir(); err != nil {
		return err
	}
	fd.movie = &gif.GIF{}
	fd.recording = true
	log.Printf("[FrameDumper] movie capture started")
	return nil
}

// StopCapture ends the recording and writes the movie. It returns the
// file written.
func (fd *FrameDumper) StopCapture() (string, error) {
	if !fd.recording {
		return "", fmt.Errorf("no capture in progress")
	}
	fd.recording = false
	movie := fd.movie
	fd.movie = nil

	if len(movie.Image) == 0 {
		return "", fmt.Errorf("capture has no frames")
	}

	fd.movies++
	path := filepath.Join(fd.outputDir, fmt.Sprintf("movie_%03d.gif", fd.movies))
	if err := writeFile(path, func(w io.Writer) error { return gif.EncodeAll(w, movie) }); err != nil {
		return "", err
	}
	log.Printf("[FrameDumper] wrote %d frames to %s", len(movie.Image), path)
	return path, nil
}

// CaptureFrame appends f to the movie being recorded
func (fd *FrameDumper) CaptureFrame(f *stic.Frame) {
	if !fd.recording {
		return
	}
	fd.movie.Image = append(fd.movie.Image, fd.scaled(graphics.FrameImage(f, fd.palette)))
	fd.movie.Delay = append(fd.movie.Delay, movieDelay)

	if fd.maxMovieFrames > 0 && len(fd.movie.Image) >= fd.maxMovieFrames {
		if _, err := fd.StopCapture(); err != nil {
			log.Printf("[FrameDumper] failed to finish movie: %v", err)
		}
	}
}

// MovieFrames returns the number of frames recorded so far
func (fd *FrameDumper) MovieFrames() int {
	if fd.movie == nil {
		return 0
	}
	return len(fd.movie.Image)
}

// SaveScreenshot writes f as a single-frame GIF and returns the file name
func (fd *FrameDumper) SaveScreenshot(f *stic.Frame) (string, error) {
	dir := fd.shotDir
	if dir == "" {
		dir = fd.outputDir
	}
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	fd.shots++
	path := filepath.Join(dir, fmt.Sprintf("shot_%04d.gif", fd.shots))
	img := fd.scaled(graphics.FrameImage(f, fd.palette))
	if err := writeFile(path, func(w io.Writer) error { return gif.Encode(w, img, nil) }); err != nil {
		return "", err
	}
	return path, nil
}

// WriteGRAM implements stic.GRAMSink
func (fd *FrameDumper) WriteGRAM(img *image.Paletted) error {
	if err := fd.ensureDir(); err != nil {
		return err
	}
	fd.gramShots++
	path := filepath.Join(fd.outputDir, fmt.Sprintf("gram_%04d.gif", fd.gramShots))
	scaled := fd.scaled(img)
	if err := writeFile(path, func(w io.Writer) error { return gif.Encode(w, scaled, nil) }); err != nil {
		return err
	}
	log.Printf("[FrameDumper] GRAM written to %s", path)
	return nil
}

// scaled enlarges src by the configured scale with nearest-neighbour
// sampling, keeping it paletted
func (fd *FrameDumper) scaled(src *image.Paletted) *image.Paletted {
	if fd.scale == 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx()*fd.scale, b.Dy()*fd.scale), src.Palette)
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func writeFile(path string, encode func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %v", err)
	}
	if err := encode(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %v", path, err)
	}
	return file.Close()
}

// DumpFrame writes a text dump of f's color indices, one hex digit per
// pixel, followed by a color frequency table
func (fd *FrameDumper) DumpFrame(f *stic.Frame, frameNum uint64) error {
	if !fd.dumpEnabled {
		return nil
	}
	if frameNum%uint64(fd.dumpInterval) != 0 {
		return nil
	}
	if fd.frameCount >= uint64(fd.maxDumps) {
		return nil
	}

	filename := fmt.Sprintf("frame_%06d.txt", frameNum)
	file, err := os.Create(filepath.Join(fd.outputDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create frame dump file: %v", err)
	}
	defer file.Close()

	if err := WriteFrameText(file, f, frameNum); err != nil {
		return err
	}
	fd.frameCount++
	return nil
}

// WriteFrameText writes the text form of a frame dump to w
func WriteFrameText(w io.Writer, f *stic.Frame, frameNum uint64) error {
	fmt.Fprintf(w, "Frame Dump\n")
	fmt.Fprintf(w, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(w, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Dimensions: %dx%d\n", stic.FrameWidth, stic.FrameHeight)
	fmt.Fprintf(w, "===================\n\n")

	var freq [16]int
	line := make([]byte, stic.FrameWidth)
	for y := 0; y < stic.FrameHeight; y++ {
		for x := 0; x < stic.FrameWidth; x++ {
			c := f[y*stic.FrameWidth+x] & 0xF
			freq[c]++
			line[x] = "0123456789ABCDEF"[c]
		}
		if _, err := fmt.Fprintf(w, "%03d: %s\n", y, line); err != nil {
			return err
		}
	}

	type entry struct{ color, count int }
	var used []entry
	for c, n := range freq {
		if n > 0 {
			used = append(used, entry{c, n})
		}
	}
	sort.Slice(used, func(i, j int) bool { return used[i].count > used[j].count })

	total := float64(stic.FrameWidth * stic.FrameHeight)
	fmt.Fprintf(w, "\nColor Frequency Analysis:\n")
	fmt.Fprintf(w, "Color | Count | Percentage\n")
	fmt.Fprintf(w, "------|-------|----------\n")
	for _, e := range used {
		fmt.Fprintf(w, "   %X  | %5d | %6.2f%%\n", e.color, e.count, float64(e.count)/total*100)
	}
	return nil
}
