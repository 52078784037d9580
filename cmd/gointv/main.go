// Package main implements the gointv executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gointv/internal/app"
	"gointv/internal/graphics"
	"gointv/internal/version"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to configuration file")
		backend    = flag.String("backend", "", "Display backend: ebitengine, terminal or headless")
		region     = flag.String("region", "", "Video standard: NTSC or PAL")
		chip       = flag.String("stic", "", "Chip revision: 8900 or STIC1A")
		gramSize   = flag.Int("gram-size", -1, "GRAM size: 0, 1 or 2 for 64, 128 or 256 cards")
		gromFile   = flag.String("grom", "", "Path to the 2 KiB GROM image")
		execFile   = flag.String("exec", "", "Path to the Executive ROM image")
		paletteArg = flag.String("palette", "", "Palette: ntsc, pal or classic")
		speed      = flag.Float64("speed", 0, "Emulation speed, 1.0 is real time")
		frames     = flag.Uint64("frames", 0, "Stop after this many frames (0 runs until closed)")
		saveFrames = flag.String("save-frames", "", "Comma separated frame numbers to save as PPM (headless)")
		outputDir  = flag.String("output", ".", "Directory for frames saved with -save-frames")
		sticDebug  = flag.String("stic-debug", "", "Comma separated chip debug flags")
		dumpFrames = flag.Int("dump", 0, "Write text dumps of the first N frames")
		gramShot   = flag.Bool("gram-shot", false, "Export GRAM as a GIF on the first frame")
		gramText   = flag.Bool("gram-text", false, "Print a text dump of GRAM on exit")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	setupGracefulShutdown()

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		config = app.NewConfig()
	}

	// Flags override the file
	if *backend != "" {
		config.Video.Backend = *backend
	}
	if *nogui {
		config.Video.Backend = "headless"
	}
	if *region != "" {
		config.Emulation.Region = *region
	}
	if *chip != "" {
		config.Emulation.STICType = *chip
	}
	if *gramSize >= 0 {
		config.Emulation.GRAMSize = *gramSize
	}
	if *gromFile != "" {
		config.Emulation.GROMPath = *gromFile
	}
	if *execFile != "" {
		config.Emulation.ExecPath = *execFile
	}
	if *paletteArg != "" {
		config.Video.Palette = *paletteArg
	}
	if *speed > 0 {
		config.Emulation.Speed = *speed
	}
	if *sticDebug != "" {
		config.Debug.STICDebug = *sticDebug
	}
	if *dumpFrames > 0 {
		config.Debug.DumpFrames = *dumpFrames
	}
	if *gramShot {
		config.Debug.GRAMCapture = true
	}
	if *debug {
		config.Debug.EnableLogging = true
		config.Debug.RequestLogging = true
	}

	application, err := app.NewApplicationWithConfig(config, *nogui)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	if *saveFrames != "" {
		if err := scheduleFrameSaves(application, *saveFrames, *outputDir); err != nil {
			log.Fatalf("Invalid -save-frames: %v", err)
		}
	}

	limit := *frames
	if limit == 0 && config.Video.Backend == "headless" {
		limit = 120
	}
	application.SetFrameLimit(limit)

	printStartup(application)

	if err := application.Run(); err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	printStats(application)

	if *gramText {
		chip := application.GetEmulator().Chip()
		if err := chip.WriteGRAMText(os.Stdout, 0, 64<<chip.Config().GRAMSize, 8); err != nil {
			log.Printf("GRAM dump failed: %v", err)
		}
	}
}

// scheduleFrameSaves marks frames for the headless window to write as PPM
func scheduleFrameSaves(application *app.Application, list, dir string) error {
	hw, ok := application.GetWindow().(*graphics.HeadlessWindow)
	if !ok {
		return fmt.Errorf("frame saving needs the headless backend")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	var nums []int
	for _, part := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return fmt.Errorf("bad frame number %q", part)
		}
		nums = append(nums, n)
	}
	hw.SetOutputPath(dir)
	hw.SaveFrames(nums...)
	return nil
}

func printStartup(application *app.Application) {
	config := application.GetConfig()
	cfg, _ := config.STICConfig()

	fmt.Printf("gointv %s\n", version.GetVersion())
	fmt.Printf("   Backend: %s\n", application.GetBackendName())
	fmt.Printf("   Chip:    %s %s, %d GRAM cards\n", cfg.Type, cfg.Region, 64<<cfg.GRAMSize)
	if cfg.Debug != 0 {
		fmt.Printf("   Debug:   %s\n", cfg.Debug)
	}
	if config.Emulation.GROMPath == "" {
		fmt.Println("   GROM:    built-in test pattern")
	} else {
		fmt.Printf("   GROM:    %s\n", config.Emulation.GROMPath)
	}
}

func printStats(application *app.Application) {
	stats := application.GetEmulator().GetPerformanceStats()

	fmt.Printf("Session Statistics:\n")
	fmt.Printf("   Frames run:      %d\n", stats.FrameCount)
	fmt.Printf("   Frames composed: %d (%d dropped for speed)\n", stats.ComposedFrames, stats.DroppedFrames)
	fmt.Printf("   CPU cycles:      %d\n", stats.CycleCount)
	fmt.Printf("   Interrupts:      %d acked, %d dropped\n", stats.Requests.InterruptsAcked, stats.Requests.InterruptsDropped)
	fmt.Printf("   Bus stalls:      %d acked, %d dropped\n", stats.Requests.BusStallsAcked, stats.Requests.BusStallsDropped)
	fmt.Printf("   Session time:    %v\n", application.GetUptime())
	if halted, reason := application.GetEmulator().Halted(); halted {
		fmt.Printf("   Halted:          %s\n", reason)
	}
}

// setupGracefulShutdown exits cleanly on interrupt
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nInterrupt received, shutting down...")
		os.Exit(0)
	}()
}

func printUsage() {
	fmt.Println("gointv - Intellivision display chip emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gointv [options]")
	fmt.Println("  gointv -nogui -frames 300 -save-frames 100,200 [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("HOTKEYS:")
	fmt.Println("  Escape  Quit")
	fmt.Println("  P       Pause / resume (also clears a debug halt)")
	fmt.Println("  F1      Toggle status overlay")
	fmt.Println("  F5      Reset")
	fmt.Println("  F7      Export GRAM as GIF")
	fmt.Println("  F9      Start / stop GIF movie capture")
	fmt.Println("  F12     Screenshot")
	fmt.Println()
	fmt.Println("DEBUG FLAGS (-stic-debug):")
	fmt.Println("  show_wr_drop, show_rd_drop, show_fifo_load, dbg_ctrl_access_window,")
	fmt.Println("  dbg_gmem_access_window, halt_on_blank, gramshot, dbg_reqs,")
	fmt.Println("  halt_on_busrq_drop, halt_on_intrm_drop")
	fmt.Println()
	fmt.Printf("CONFIGURATION:\n  Config file: %s\n", app.GetDefaultConfigPath())
}
