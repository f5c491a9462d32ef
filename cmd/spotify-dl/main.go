package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/download"
	"github.com/handiism/spotify-downloader/internal/spotify"
)

func main() {
	// Command line flags
	var (
		urlsFlag    = flag.String("url", "", "Media URL(s) or URI(s) to download (comma-separated)")
		outputFlag  = flag.String("output", "", "Output directory (overrides config)")
		configFlag  = flag.String("config", "", "Path to config file")
		qualityFlag = flag.String("quality", "", "Audio quality tier (vorbis-high, vorbis-medium, vorbis-low, aac-high, aac-medium)")
		cookieFlag  = flag.String("sp-dc", "", "Account cookie (overrides config)")
		verboseFlag = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag  = flag.Bool("dry-run", false, "Parse URLs without downloading")
	)

	flag.Parse()

	// Require URL
	if *urlsFlag == "" && flag.NArg() == 0 {
		fmt.Println("Spotify Downloader - Download music and podcasts")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  spotify-dl -url <URL> [options]")
		fmt.Println("  spotify-dl <URL> [options]")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *outputFlag != "" {
		settings.OutputPath = *outputFlag
	}
	if *qualityFlag != "" {
		settings.AudioQuality = *qualityFlag
	}
	if *cookieFlag != "" {
		settings.SPDC = *cookieFlag
	}

	// Get URLs
	raw := *urlsFlag
	if raw == "" && flag.NArg() > 0 {
		raw = strings.Join(flag.Args(), ",")
	}
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	client := spotify.NewClient(spotify.Options{
		SPDC:     settings.SPDC,
		Registry: &spotify.WebSecretRegistry{URL: settings.SecretsURL},
	})

	// Create manager with progress callback
	manager, err := download.NewManager(settings, client, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !*verboseFlag {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Println(prefix + event.Message)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🎵 Spotify Downloader")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if err := manager.Initialize(ctx, urls); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	if *dryRunFlag {
		fmt.Println("\n[Dry run - not downloading]")
		return
	}

	fmt.Println("\n📥 Starting downloads...")
	fmt.Println()

	if err := manager.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nDownload cancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error during download: %v\n", err)
		os.Exit(1)
	}

	if manager.Failures() > 0 {
		os.Exit(1)
	}
}
