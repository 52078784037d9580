//go:build !headless
// +build !headless

package graphics

// Test helper methods for accessing internal state during testing

// GetGameForTesting returns the internal game instance for testing purposes
func (w *EbitengineWindow) GetGameForTesting() *EbitengineGame {
	return w.game
}

// GetEmulatorUpdateFuncForTesting returns the emulator update function for testing
func (w *EbitengineWindow) GetEmulatorUpdateFuncForTesting() func() error {
	return w.emulatorUpdateFunc
}

// NewGameForTesting builds a game sized for layout tests without creating
// any GPU resources
func NewGameForTesting(windowWidth, windowHeight int, aspect string) *EbitengineGame {
	return &EbitengineGame{
		frameWidth:   160,
		frameHeight:  200,
		windowWidth:  windowWidth,
		windowHeight: windowHeight,
		aspect:       aspect,
	}
}

// ScaleForTesting exposes the scale computation
func (g *EbitengineGame) ScaleForTesting() (float64, float64) {
	return g.scale()
}
