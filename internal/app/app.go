// Package app implements the main application: configuration, the emulated
// system and the run loop that connects it to a display backend.
package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gointv/internal/debug"
	"gointv/internal/graphics"
)

// Application represents the main emulator application
type Application struct {
	// Core emulation components
	emulator *Emulator
	states   *StateManager

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	screen          *graphics.Screen
	palette         graphics.Palette

	// Capture sinks
	dumper *debug.FrameDumper
	tap    *debug.DisplayTap

	config *Config

	// Control flags
	running     bool
	paused      bool
	initialized bool
	headless    bool
	frameLimit  uint64

	// Performance tracking
	frameCount          uint64
	startTime           time.Time
	lastFPSTime         time.Time
	frameCountAtLastFPS uint64
	currentFPS          float64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

// NewApplication creates a new application
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new application with optional headless mode
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
			config = NewConfig()
		}
	}
	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates an application from an existing
// configuration
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	app := &Application{
		config:      config,
		headless:    headless,
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	if err := app.initializeComponents(); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}
	return app, nil
}

// initializeComponents builds the system and connects the chip to the
// display and capture sinks
func (app *Application) initializeComponents() error {
	var err error
	app.emulator, err = NewEmulator(app.config)
	if err != nil {
		return fmt.Errorf("failed to create emulator: %v", err)
	}

	if err := app.initializeGraphicsBackend(); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %v", err)
	}

	app.dumper = debug.NewFrameDumper(app.config.Paths.Captures, app.palette)
	app.dumper.SetScreenshotDir(app.config.Paths.Screenshots)
	if n := app.config.Debug.DumpFrames; n > 0 {
		app.dumper.SetMaxDumps(n)
		if err := app.dumper.Enable(); err != nil {
			return err
		}
	}

	app.screen = graphics.NewScreen(app.window, app.palette)
	app.screen.SetOverlay(app.config.Video.Overlay)
	app.tap = debug.NewDisplayTap(app.screen, app.dumper)

	chip := app.emulator.Chip()
	chip.SetDisplay(app.tap)
	chip.SetCapture(app.dumper)
	chip.SetGRAMSink(app.dumper)

	app.states = NewStateManager(app.config.Paths.States)

	app.initialized = true
	return nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend() error {
	var backendType graphics.BackendType
	if app.headless {
		backendType = graphics.BackendHeadless
	} else {
		switch app.config.Video.Backend {
		case "headless":
			backendType = graphics.BackendHeadless
		case "terminal":
			backendType = graphics.BackendTerminal
		default:
			backendType = graphics.BackendEbitengine
		}
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %v", err)
	}

	graphicsConfig := graphics.Config{
		WindowTitle:  "gointv",
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		AspectRatio:  app.config.Video.AspectRatio,
		Headless:     app.headless,
		Debug:        app.config.Verbose(),
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// Without a display, fall back to headless
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %v", err)
		}
		fmt.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode\n", err)
		app.graphicsBackend, err = graphics.CreateBackend(graphics.BackendHeadless)
		if err != nil {
			return fmt.Errorf("failed to create fallback headless backend: %v", err)
		}
		graphicsConfig.Headless = true
		app.headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %v", err)
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow(
		graphicsConfig.WindowTitle,
		graphicsConfig.WindowWidth,
		graphicsConfig.WindowHeight,
	)
	if err != nil {
		return fmt.Errorf("failed to create window: %v", err)
	}

	region, _ := app.config.Region()
	p, err := graphics.PaletteByName(app.config.Video.Palette, region)
	if err != nil {
		return err
	}
	vp := graphics.NewVideoProcessor(
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)
	if !vp.Identity() {
		p = vp.ProcessPalette(p)
	}
	app.palette = p
	return nil
}

// SetFrameLimit stops Run after n frames. Zero runs until the window closes.
func (app *Application) SetFrameLimit(n uint64) {
	app.frameLimit = n
}

// Run starts the main application loop
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	app.running = true
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()
	app.emulator.Start()

	if app.config.Verbose() {
		fmt.Printf("[APP_DEBUG] Starting emulator with %s backend...\n", app.graphicsBackend.GetName())
	}

	if ew, ok := graphics.AsEbitengineWindow(app.window); ok && !app.graphicsBackend.IsHeadless() {
		ew.SetEmulatorUpdateFunc(func() error {
			err := app.step()
			if !app.running {
				// Ends the game loop on the next update
				ew.Cleanup()
			}
			return err
		})
		return ew.Run()
	}

	// Headless runs flat out; other backends pace to the frame rate
	pace := !app.graphicsBackend.IsHeadless()
	for app.running {
		frameStart := time.Now()
		if err := app.step(); err != nil {
			return err
		}
		if pace {
			if d := app.emulator.GetTargetFrameTime() - time.Since(frameStart); d > 0 {
				time.Sleep(d)
			}
		}
	}

	if app.config.Verbose() {
		fmt.Println("[APP_DEBUG] Emulator main loop ended")
	}
	return nil
}

// step handles input, runs one frame and updates the status line
func (app *Application) step() error {
	app.processInput()

	if !app.paused {
		if err := app.emulator.Update(); err != nil {
			return err
		}
		app.frameCount++
	}

	app.updateStatus()

	if app.window.ShouldClose() {
		app.Stop()
	}
	if app.frameLimit > 0 && app.frameCount >= app.frameLimit {
		app.Stop()
	}
	return nil
}

// processInput handles hotkeys from the window
func (app *Application) processInput() {
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
		case graphics.InputEventTypeKey:
			if event.Pressed {
				app.handleKey(event.Key)
			}
		}
	}
}

func (app *Application) handleKey(key graphics.Key) {
	switch key {
	case graphics.KeyEscape:
		app.Stop()

	case graphics.KeyPause:
		app.TogglePause()

	case graphics.KeyReset:
		app.Reset()

	case graphics.KeyGRAMShot:
		app.emulator.Chip().RequestGRAMShot()

	case graphics.KeyScreenshot:
		if path, err := app.Screenshot(); err != nil {
			log.Printf("[APP] screenshot failed: %v", err)
		} else {
			log.Printf("[APP] screenshot saved to %s", path)
		}

	case graphics.KeyCapture:
		if err := app.ToggleCapture(); err != nil {
			log.Printf("[APP] capture failed: %v", err)
		}

	case graphics.KeyOverlay:
		app.screen.SetOverlay(!app.screen.Overlay())
	}
}

// updateStatus refreshes the FPS estimate and the overlay status line
func (app *Application) updateStatus() {
	if elapsed := time.Since(app.lastFPSTime); elapsed >= time.Second {
		app.currentFPS = float64(app.frameCount-app.frameCountAtLastFPS) / elapsed.Seconds()
		app.frameCountAtLastFPS = app.frameCount
		app.lastFPSTime = time.Now()
	}

	status := fmt.Sprintf("%.0f FPS", app.currentFPS)
	switch halted, _ := app.emulator.Halted(); {
	case halted:
		status += " HALT"
	case app.paused:
		status += " PAUSE"
	}
	if app.dumper.Active() {
		status += " REC"
	}
	app.screen.SetStatus(status)
}

// Screenshot saves the last frame the chip composed
func (app *Application) Screenshot() (string, error) {
	return app.tap.Screenshot()
}

// ToggleCapture starts or stops a movie capture. While a capture runs the
// chip composes every frame.
func (app *Application) ToggleCapture() error {
	if app.dumper.Active() {
		path, err := app.dumper.StopCapture()
		if err != nil {
			return err
		}
		log.Printf("[APP] movie saved to %s", path)
		return nil
	}
	return app.dumper.StartCapture()
}

// SaveState snapshots the display state into slot
func (app *Application) SaveState(slot int) error {
	return app.states.SaveState(app.emulator, slot)
}

// LoadState restores the display state saved in slot
func (app *Application) LoadState(slot int) error {
	return app.states.LoadState(app.emulator, slot)
}

// Stop stops the application
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator and clears any halt raised by the chip
func (app *Application) Resume() {
	app.paused = false
	app.emulator.Resume()
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	if app.paused {
		app.Resume()
	} else {
		app.Pause()
	}
}

// Reset resets the emulator
func (app *Application) Reset() {
	app.emulator.Reset()
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetEmulator returns the emulated system
func (app *Application) GetEmulator() *Emulator {
	return app.emulator
}

// GetScreen returns the screen frames are presented on
func (app *Application) GetScreen() *graphics.Screen {
	return app.screen
}

// GetWindow returns the backend window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// GetBackendName returns the name of the active graphics backend
func (app *Application) GetBackendName() string {
	return app.graphicsBackend.GetName()
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Verbose() {
		fmt.Println("[APP_DEBUG] Cleaning up application resources...")
	}

	var lastErr error

	if app.dumper != nil && app.dumper.Active() {
		if _, err := app.dumper.StopCapture(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Capture cleanup error: %v\n", err)
		}
	}

	if app.states != nil {
		if err := app.states.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] State manager cleanup error: %v\n", err)
		}
	}

	if app.emulator != nil {
		if err := app.emulator.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Emulator cleanup error: %v\n", err)
		}
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Window cleanup error: %v\n", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Graphics backend cleanup error: %v\n", err)
		}
	}

	app.initialized = false
	return lastErr
}
