package debug

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gointv/internal/graphics"
	"gointv/internal/reqq"
	"gointv/internal/stic"
)

// MockDisplay counts what reaches the screen behind the tap
type MockDisplay struct {
	frames int
	video  stic.VideoState
	border uint8
	hidden bool
}

func (m *MockDisplay) PushFrame(f *stic.Frame) { m.frames++ }
func (m *MockDisplay) SetVideoEnabled(v stic.VideoState) { m.video = v }
func (m *MockDisplay) SetBorder(color uint8) { m.border = color }
func (m *MockDisplay) Hidden() bool { return m.hidden }

// MockDirtyDisplay also records dirty hints
type MockDirtyDisplay struct {
	MockDisplay
	marks []uint8
}

func (m *MockDirtyDisplay) MarkDirty(flags uint8) { m.marks = append(m.marks, flags) }

func testFrame() *stic.Frame {
	f := &stic.Frame{}
	for y := 0; y < stic.FrameHeight; y++ {
		for x := 0; x < stic.FrameWidth; x++ {
			f[y*stic.FrameWidth+x] = uint8((x / 10) & 0xF)
		}
	}
	return f
}

func decodeGIF(t *testing.T, path string) *gif.GIF {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer file.Close()
	g, err := gif.DecodeAll(file)
	if err != nil {
		t.Fatalf("Failed to decode %s: %v", path, err)
	}
	return g
}

func TestSaveScreenshot(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)

	path, err := fd.SaveScreenshot(testFrame())
	if err != nil {
		t.Fatalf("Failed to save screenshot: %v", err)
	}
	if filepath.Base(path) != "shot_0001.gif" {
		t.Errorf("Expected shot_0001.gif, got %s", filepath.Base(path))
	}

	g := decodeGIF(t, path)
	b := g.Image[0].Bounds()
	if b.Dx() != 320 || b.Dy() != 400 {
		t.Errorf("Expected 2x scaled 320x400, got %dx%d", b.Dx(), b.Dy())
	}
	// Column 25 of the frame holds color 2; at 2x it covers x=50..51.
	r, g2, bl, _ := g.Image[0].At(51, 10).RGBA()
	want := graphics.NTSCPalette[2]
	if uint8(r>>8) != want.R || uint8(g2>>8) != want.G || uint8(bl>>8) != want.B {
		t.Errorf("Expected red pixel, got %d,%d,%d", r>>8, g2>>8, bl>>8)
	}
}

func TestScreenshotDir(t *testing.T) {
	dir := t.TempDir()
	shots := filepath.Join(dir, "shots")
	fd := NewFrameDumper(filepath.Join(dir, "captures"), graphics.NTSCPalette)
	fd.SetScreenshotDir(shots)

	path, err := fd.SaveScreenshot(testFrame())
	if err != nil {
		t.Fatalf("Failed to save screenshot: %v", err)
	}
	if filepath.Dir(path) != shots {
		t.Errorf("Expected screenshot in %s, got %s", shots, path)
	}
}

func TestScaleOne(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)
	fd.SetScale(0)

	path, err := fd.SaveScreenshot(testFrame())
	if err != nil {
		t.Fatalf("Failed to save screenshot: %v", err)
	}
	if b := decodeGIF(t, path).Image[0].Bounds(); b.Dx() != 160 || b.Dy() != 200 {
		t.Errorf("Expected unscaled 160x200, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestMovieCapture(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)
	fd.SetScale(1)

	fd.CaptureFrame(testFrame())
	if fd.MovieFrames() != 0 {
		t.Error("Expected frames ignored while not recording")
	}

	if err := fd.StartCapture(); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}
	if !fd.Active() {
		t.Error("Expected capture to be active")
	}
	if err := fd.StartCapture(); err == nil {
		t.Error("Expected error starting a second capture")
	}

	for i := 0; i < 3; i++ {
		fd.CaptureFrame(testFrame())
	}

	path, err := fd.StopCapture()
	if err != nil {
		t.Fatalf("Failed to stop capture: %v", err)
	}
	if fd.Active() {
		t.Error("Expected capture inactive after stop")
	}

	g := decodeGIF(t, path)
	if len(g.Image) != 3 {
		t.Errorf("Expected 3 movie frames, got %d", len(g.Image))
	}
	if g.Delay[0] != movieDelay {
		t.Errorf("Expected delay %d, got %d", movieDelay, g.Delay[0])
	}

	if _, err := fd.StopCapture(); err == nil {
		t.Error("Expected error stopping with no capture")
	}
}

func TestMovieCaptureStopsAtLimit(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)
	fd.SetScale(1)
	fd.SetMaxMovieFrames(2)

	fd.StartCapture()
	fd.CaptureFrame(testFrame())
	fd.CaptureFrame(testFrame())

	if fd.Active() {
		t.Error("Expected capture to stop at the frame limit")
	}
	if _, err := os.Stat(filepath.Join(dir, "movie_001.gif")); err != nil {
		t.Errorf("Expected movie written: %v", err)
	}
}

func TestEmptyMovieIsAnError(t *testing.T) {
	fd := NewFrameDumper(t.TempDir(), graphics.NTSCPalette)
	fd.StartCapture()
	if _, err := fd.StopCapture(); err == nil {
		t.Error("Expected error for a movie with no frames")
	}
}

func TestWriteGRAM(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)

	pal := color.Palette{color.Black, color.White}
	img := image.NewPaletted(image.Rect(0, 0, 10, 4), pal)
	img.SetColorIndex(3, 2, 1)

	if err := fd.WriteGRAM(img); err != nil {
		t.Fatalf("Failed to write GRAM: %v", err)
	}

	g := decodeGIF(t, filepath.Join(dir, "gram_0001.gif"))
	out := g.Image[0]
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 8 {
		t.Errorf("Expected 20x8, got %v", out.Bounds())
	}
	if out.ColorIndexAt(7, 5) != 1 || out.ColorIndexAt(0, 0) != 0 {
		t.Error("Expected scaled GRAM pixels to keep their indices")
	}
}

func TestGRAMSinkWithChip(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)

	q := reqq.New()
	chip, err := stic.New(stic.Config{Seed: 1}, make([]byte, 2048), q)
	if err != nil {
		t.Fatalf("Failed to create STIC: %v", err)
	}
	chip.SetGRAMSink(fd)
	chip.RequestGRAMShot()
	chip.Tick(0, 10)

	if _, err := os.Stat(filepath.Join(dir, "gram_0001.gif")); err != nil {
		t.Errorf("Expected GRAM shot written: %v", err)
	}
}

func TestDumpFrame(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)

	if err := fd.DumpFrame(testFrame(), 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Error("Expected no dump while disabled")
	}

	if err := fd.Enable(); err != nil {
		t.Fatalf("Failed to enable: %v", err)
	}
	fd.SetDumpInterval(2)
	fd.SetMaxDumps(1)

	for n := uint64(1); n <= 6; n++ {
		if err := fd.DumpFrame(testFrame(), n); err != nil {
			t.Fatalf("Dump failed: %v", err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "frame_000002.txt" {
		t.Errorf("Expected only frame_000002.txt, got %v", entries)
	}
}

func TestWriteFrameText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrameText(&buf, testFrame(), 7); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s := buf.String()

	if !strings.Contains(s, "Frame Number: 7") {
		t.Error("Expected frame number in header")
	}
	row := "000: " + strings.Repeat("0", 10) + strings.Repeat("1", 10)
	if !strings.Contains(s, row) {
		t.Error("Expected first row to start with ten 0s and ten 1s")
	}
	// Each of the 16 colors covers 10 columns of 200 rows.
	if !strings.Contains(s, "|  2000 |   6.25%") {
		t.Error("Expected 6.25% per color in the frequency table")
	}
}

func TestDisplayTap(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir, graphics.NTSCPalette)
	next := &MockDisplay{hidden: true}
	tap := NewDisplayTap(next, fd)

	fd.StartCapture()
	tap.PushFrame(testFrame())
	tap.SetVideoEnabled(stic.VideoEnabled)
	tap.SetBorder(5)

	if next.frames != 1 || next.video != stic.VideoEnabled || next.border != 5 {
		t.Errorf("Expected calls forwarded, got %+v", next)
	}
	if !tap.Hidden() {
		t.Error("Expected hidden state forwarded")
	}
	if fd.MovieFrames() != 1 {
		t.Errorf("Expected frame captured, got %d", fd.MovieFrames())
	}

	path, err := tap.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected screenshot file: %v", err)
	}
}

func TestDisplayTapForwardsDirtyHints(t *testing.T) {
	fd := NewFrameDumper(t.TempDir(), graphics.NTSCPalette)

	next := &MockDirtyDisplay{}
	NewDisplayTap(next, fd).MarkDirty(2)
	if len(next.marks) != 1 || next.marks[0] != 2 {
		t.Errorf("Expected dirty hint 2 forwarded, got %v", next.marks)
	}

	// A display without dirty tracking simply ignores the hint.
	NewDisplayTap(&MockDisplay{}, fd).MarkDirty(1)
	NewDisplayTap(nil, fd).MarkDirty(1)
}
