//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gointv/internal/stic"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the emulator
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	frameWidth   int
	frameHeight  int
	windowWidth  int
	windowHeight int
	aspect       string

	drawCount int
}

// keyMappings binds host keys to front-end hotkeys
var keyMappings = map[ebiten.Key]Key{
	ebiten.KeyEscape: KeyEscape,
	ebiten.KeyP:      KeyPause,
	ebiten.KeyF5:     KeyReset,
	ebiten.KeyF7:     KeyGRAMShot,
	ebiten.KeyF12:    KeyScreenshot,
	ebiten.KeyF9:     KeyCapture,
	ebiten.KeyF1:     KeyOverlay,
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		frameWidth:   stic.FrameWidth,
		frameHeight:  stic.FrameHeight,
		windowWidth:  width,
		windowHeight: height,
		aspect:       b.config.AspectRatio,
		frameImage:   ebiten.NewImage(stic.FrameWidth, stic.FrameHeight),
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns and clears the queued input events
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// Hidden reports a minimized window
func (w *EbitengineWindow) Hidden() bool {
	return ebiten.IsWindowMinimized()
}

// RenderFrame uploads a frame to the GPU image drawn by the game loop
func (w *EbitengineWindow) RenderFrame(img *image.RGBA) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	if img == nil || img.Bounds().Dx() != w.game.frameWidth || img.Bounds().Dy() != w.game.frameHeight {
		return fmt.Errorf("frame must be %dx%d", w.game.frameWidth, w.game.frameHeight)
	}

	w.game.frameImage.WritePixels(img.Pix)
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop. It blocks until the window closes.
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets the function run once per host frame
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	g.processInput()

	if !g.window.running {
		return ebiten.Termination
	}

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Emulator update error: %v", err)
		}
	}

	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})
	if g.frameImage == nil {
		return
	}

	scaleX, scaleY := g.scale()
	offsetX := (float64(g.windowWidth) - float64(g.frameWidth)*scaleX) / 2
	offsetY := (float64(g.windowHeight) - float64(g.frameHeight)*scaleY) / 2

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scaleX, scaleY)
	op.GeoM.Translate(offsetX, offsetY)
	if g.window != nil && g.window.backend != nil && g.window.backend.config.Filter == "linear" {
		op.Filter = ebiten.FilterLinear
	}
	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.drawCount%3600 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d - %dx%d scaled %.2fx%.2f",
			g.drawCount, g.frameWidth, g.frameHeight, scaleX, scaleY)
	}
}

// scale returns the horizontal and vertical scale factors. With a 4:3
// aspect the 160x200 picture fills a 4:3 box, so pixels are wider than tall.
func (g *EbitengineGame) scale() (float64, float64) {
	fw, fh := float64(g.frameWidth), float64(g.frameHeight)
	ww, wh := float64(g.windowWidth), float64(g.windowHeight)

	if g.aspect == "stretch" {
		return ww / fw, wh / fh
	}

	boxW := fh * 4 / 3
	s := min(ww/boxW, wh/fh)
	return s * boxW / fw, s
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// processInput turns hotkey presses into events
func (g *EbitengineGame) processInput() {
	if g.window == nil {
		return
	}

	var events []InputEvent
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		events = append(events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	for ebitenKey, key := range keyMappings {
		if inpututil.IsKeyJustPressed(ebitenKey) {
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: true})
		} else if inpututil.IsKeyJustReleased(ebitenKey) {
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false})
		}
	}

	g.window.events = append(g.window.events, events...)
}
