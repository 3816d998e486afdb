// Package main is the entry point for the splice timeline editor.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/splicekit/splice/internal/app"
	"github.com/splicekit/splice/internal/exporter"
	"github.com/splicekit/splice/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "path to config file")
		dbPath      = flag.String("db", "", "override project database path")
		logLevel    = flag.String("log-level", "", "log level (debug, info, warn, error)")
		watchConfig = flag.Bool("watch-config", false, "reload config on change")
		exportPath  = flag.String("export", "", "export the project to this file and exit")
		format      = flag.String("format", "", "export container format (avi, gif)")
		quality     = flag.String("quality", "", "export quality tier (high, standard)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("splice %s (%s)\n", version, commit)
		return 0
	}

	application, err := app.New(app.Options{
		ConfigPath:  *configPath,
		StoragePath: *dbPath,
		LogLevel:    *logLevel,
		WatchConfig: *watchConfig,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	if *exportPath != "" {
		return runExport(application, *exportPath, *format, *quality)
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		application.Shutdown()
		os.Exit(1)
	}()

	if err := ui.Run(application); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runExport(application *app.Application, path, format, quality string) int {
	artifact, err := application.Export(exporter.Options{
		Format:  format,
		Quality: exporter.Quality(quality),
		OnProgress: func(pr exporter.Progress) {
			if pr.Phase == exporter.PhaseRendering {
				fmt.Fprintf(os.Stderr, "\rrendering %d/%d", pr.Frame, pr.TotalFrames)
			}
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: export failed: %v\n", err)
		return 1
	}
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing %s: %v\n", path, err)
		return 1
	}
	fmt.Printf("wrote %s (%d bytes, %s)\n", path, len(artifact.Data), artifact.MediaType)
	return 0
}
