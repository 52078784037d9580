package debug

import (
	"log"

	"gointv/internal/stic"
)

// DisplayTap sits between the chip and the screen. It forwards everything
// and feeds pushed frames to the dumper.
type DisplayTap struct {
	next   stic.Display
	dumper *FrameDumper

	last   stic.Frame
	frames uint64
}

// NewDisplayTap wraps next
func NewDisplayTap(next stic.Display, dumper *FrameDumper) *DisplayTap {
	return &DisplayTap{next: next, dumper: dumper}
}

// PushFrame implements stic.Display
func (t *DisplayTap) PushFrame(f *stic.Frame) {
	t.frames++
	t.last = *f

	t.dumper.CaptureFrame(f)
	if err := t.dumper.DumpFrame(f, t.frames); err != nil {
		log.Printf("[FrameDumper] %v", err)
	}
	if t.next != nil {
		t.next.PushFrame(f)
	}
}

// MarkDirty implements stic.DirtyMarker
func (t *DisplayTap) MarkDirty(flags uint8) {
	if dm, ok := t.next.(stic.DirtyMarker); ok {
		dm.MarkDirty(flags)
	}
}

// SetVideoEnabled implements stic.Display
func (t *DisplayTap) SetVideoEnabled(v stic.VideoState) {
	if t.next != nil {
		t.next.SetVideoEnabled(v)
	}
}

// SetBorder implements stic.Display
func (t *DisplayTap) SetBorder(color uint8) {
	if t.next != nil {
		t.next.SetBorder(color)
	}
}

// Hidden implements stic.Display
func (t *DisplayTap) Hidden() bool {
	return t.next != nil && t.next.Hidden()
}

// Screenshot saves the last frame pushed through the tap
func (t *DisplayTap) Screenshot() (string, error) {
	return t.dumper.SaveScreenshot(&t.last)
}

// Frames returns the number of frames seen
func (t *DisplayTap) Frames() uint64 {
	return t.frames
}
