package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	gifopt "github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/api"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/batch"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/ffmpeg"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/gifski"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/logger"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/store"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ./config/gifopt.yaml)")
	port := flag.Int("port", 8080, "Port to listen on")
	flag.Parse()

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			cfgPath = envPath
		} else {
			cfgPath = "config/gifopt.yaml"
		}
	}

	// Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Initialize logger with default level for this warning
		logger.Init("info")
		logger.Warn("Could not load config", "path", cfgPath, "error", err)
		cfg = config.DefaultConfig()
	}

	// Initialize logger with configured level
	logger.Init(cfg.LogLevel)

	// Override tool paths with environment variables
	if envFFmpeg := os.Getenv("FFMPEG_PATH"); envFFmpeg != "" {
		cfg.FFmpegPath = envFFmpeg
	}
	if envGifski := os.Getenv("GIFSKI_PATH"); envGifski != "" {
		cfg.GifskiPath = envGifski
	}

	// Determine config directory for data storage
	configDir := filepath.Dir(cfgPath)
	if configDir == "." {
		configDir = "config"
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.Warn("Could not create config directory", "error", err)
	}

	runStore, err := store.NewSQLiteStore(filepath.Join(configDir, "gifopt.db"))
	if err != nil {
		logger.Error("Failed to initialize run store", "error", err)
		os.Exit(1)
	}
	defer runStore.Close()

	if isatty.IsTerminal(os.Stdout.Fd()) {
		printBanner(cfg, cfgPath, runStore.Path(), *port)
	}

	extractor := ffmpeg.NewExtractor(cfg.FFmpegPath, logger.Log)
	encoder := gifski.NewEncoder(cfg.GifskiPath, logger.Log)

	checkTools(extractor, encoder)

	runner := batch.NewRunner(extractor, encoder, logger.Log)
	manager := batch.NewManager(runner, runStore, logger.Log)

	handler := api.NewHandler(manager, runStore, extractor, encoder, cfg, cfgPath, logger.Log)
	router := api.NewRouter(handler)

	logger.Info("Easy Bulk GIF Optimizer started", "version", gifopt.Version, "port", *port)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		// The active run stops at its next item boundary; the record is
		// still persisted by the manager.
		manager.Cancel()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// checkTools logs a warning per missing external tool. Mode 2 and 3 work
// without ffmpeg, so a missing tool is not fatal at startup.
func checkTools(extractor *ffmpeg.Extractor, encoder *gifski.Encoder) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if v, err := extractor.CheckAvailable(ctx); err != nil {
		logger.Warn("ffmpeg not available, videos-to-gif mode will fail", "error", err)
	} else {
		logger.Info("ffmpeg available", "version", v)
	}
	if v, err := encoder.CheckAvailable(ctx); err != nil {
		logger.Warn("gifski not available, all modes will fail", "error", err)
	} else {
		logger.Info("gifski available", "version", v)
	}
}

func printBanner(cfg *config.Config, cfgPath, dbPath string, port int) {
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                  EASY BULK GIF OPTIMIZER                  ║")
	fmt.Println("║       Convert videos & images to high-quality GIFs        ║")
	versionLine := fmt.Sprintf("v%s", gifopt.Version)
	padding := 59 - len(versionLine)
	fmt.Printf("║%*s%s%*s║\n", padding/2, "", versionLine, (padding+1)/2, "")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Config:       %s\n", cfgPath)
	fmt.Printf("  Database:     %s\n", dbPath)
	fmt.Printf("  FFmpeg:       %s\n", cfg.FFmpegPath)
	fmt.Printf("  Gifski:       %s\n", cfg.GifskiPath)
	fmt.Printf("  Quality:      %d\n", cfg.Settings.Quality)
	fmt.Printf("  FPS:          %d\n", cfg.Settings.FPS)
	fmt.Println()
	fmt.Printf("  Starting server on port %d\n", port)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()
}
