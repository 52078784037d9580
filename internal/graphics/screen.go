package graphics

import (
	"fmt"
	"image"
	"log"

	"gointv/internal/stic"
)

// Screen adapts a Window to the chip's display interface. It converts
// palette indices to RGB, blanks the picture while video is disabled and
// optionally draws a status overlay. A frame is only reconverted when the
// chip marks it dirty or its pixels differ from the last one converted.
type Screen struct {
	window  Window
	palette Palette
	rgba    *image.RGBA

	last      stic.Frame
	dirty     uint8
	stale     bool
	converted uint64

	video   stic.VideoState
	border  uint8
	frames  uint64
	blanked uint64

	overlay bool
	status  string
}

// NewScreen creates a screen presenting to window
func NewScreen(window Window, p Palette) *Screen {
	return &Screen{
		window:  window,
		palette: p,
		rgba:    image.NewRGBA(image.Rect(0, 0, stic.FrameWidth, stic.FrameHeight)),
		video:   stic.VideoUnknown,
		stale:   true,
	}
}

// MarkDirty implements stic.DirtyMarker
func (s *Screen) MarkDirty(flags uint8) {
	s.dirty |= flags
}

// PushFrame implements stic.Display
func (s *Screen) PushFrame(f *stic.Frame) {
	// The overlay draws into rgba, so it always needs a clean conversion.
	if s.dirty != 0 || s.stale || s.overlay || *f != s.last {
		FrameToRGBA(f, s.palette, s.rgba)
		s.last = *f
		s.converted++
	}
	s.dirty = 0
	s.stale = false
	s.frames++
	s.present()
}

// SetVideoEnabled implements stic.Display. A frame with video disabled shows
// solid black.
func (s *Screen) SetVideoEnabled(v stic.VideoState) {
	prev := s.video
	s.video = v
	if v == stic.VideoDisabled && prev != stic.VideoDisabled {
		s.palette.Fill(s.rgba, 0)
		s.stale = true
		s.blanked++
		s.present()
	}
}

// SetBorder implements stic.Display
func (s *Screen) SetBorder(color uint8) {
	s.border = color & 0xF
}

// Hidden implements stic.Display
func (s *Screen) Hidden() bool {
	if hr, ok := s.window.(HiddenReporter); ok {
		return hr.Hidden()
	}
	return false
}

func (s *Screen) present() {
	if s.overlay {
		DrawStatus(s.rgba, fmt.Sprintf("F %d", s.frames), s.status)
	}
	if err := s.window.RenderFrame(s.rgba); err != nil {
		log.Printf("[Screen] render failed: %v", err)
	}
}

// SetOverlay turns the status overlay on or off
func (s *Screen) SetOverlay(on bool) {
	s.overlay = on
}

// Overlay reports whether the status overlay is on
func (s *Screen) Overlay() bool {
	return s.overlay
}

// SetStatus sets the second overlay line, e.g. "PAUSED"
func (s *Screen) SetStatus(status string) {
	s.status = status
}

// SetPalette changes the palette used for subsequent frames
func (s *Screen) SetPalette(p Palette) {
	s.palette = p
	s.stale = true
}

// Palette returns the active palette
func (s *Screen) Palette() Palette {
	return s.palette
}

// Image returns the last presented picture
func (s *Screen) Image() *image.RGBA {
	return s.rgba
}

// Conversions returns the number of pushed frames converted to RGB
func (s *Screen) Conversions() uint64 {
	return s.converted
}

// Frames returns the number of frames pushed
func (s *Screen) Frames() uint64 {
	return s.frames
}

// Video returns the last video-enable state reported by the chip
func (s *Screen) Video() stic.VideoState {
	return s.video
}

// Border returns the last border color reported by the chip
func (s *Screen) Border() uint8 {
	return s.border
}
