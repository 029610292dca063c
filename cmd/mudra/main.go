package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/hud"
	"github.com/ayusman/mudra/internal/tray"
)

// User interfaces selectable with -ui.
const (
	uiNone = "none"
	uiHUD  = "hud"
	uiTray = "tray"
)

func main() {
	configPath := flag.String("config", "", "path to mudra.yaml (default ~/.mudra/config.yaml if present)")
	source := flag.String("source", "", "landmark source: camera, replay or mock")
	session := flag.String("session", "", "session ID to replay")
	record := flag.Bool("record", false, "record the run as a new session")
	name := flag.String("name", "", "name of the recorded session")
	addr := flag.String("addr", "", "HTTP listen address, overrides server.addr")
	ui := flag.String("ui", uiNone, "user interface: none, hud or tray")
	logFile := flag.String("log", "", "log file path (the hud discards logs unless set)")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *source != "" {
		cfg.Input.Source = *source
	}
	if *session != "" {
		cfg.Input.Session = *session
		if *source == "" {
			cfg.Input.Source = config.SourceReplay
		}
	}
	if *record {
		cfg.Store.Record = true
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if *ui != uiNone && *ui != uiHUD && *ui != uiTray {
		log.Fatalf("Unknown -ui %q", *ui)
	}

	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			log.Fatalf("Failed to encode config: %v", err)
		}
		os.Stdout.Write(data)
		return
	}

	if closeLog := setupLog(*logFile, *ui == uiHUD); closeLog != nil {
		defer closeLog()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	webDir := findWebDir()
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}

	a, err := app.New(ctx, cfg, app.Options{StaticDir: webDir, SessionName: *name})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	switch *ui {
	case uiHUD:
		err = runHUD(ctx, a)
	case uiTray:
		err = runTray(ctx, a, cfg.Server.Addr)
	default:
		err = a.Run(ctx)
	}

	if rec := a.Recorder(); rec != nil {
		log.Printf("Session saved: %s", rec.SessionID())
	}
	if cerr := a.Close(); cerr != nil {
		log.Printf("Shutdown: %v", cerr)
	}
	if err != nil {
		log.Fatalf("mudra: %v", err)
	}
}

// loadConfig reads path, or the default config file when path is empty
// and one exists, or falls back to the built-in defaults.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config.Default(), nil
		}
		path = filepath.Join(home, ".mudra", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// setupLog redirects the standard logger to path. With no path, quiet
// discards logs instead of leaving them on stderr.
func setupLog(path string, quiet bool) func() {
	if path == "" {
		if quiet {
			log.SetOutput(io.Discard)
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	log.SetOutput(f)
	return func() { f.Close() }
}

// runHUD processes frames in the background while the terminal dashboard
// runs; quitting the dashboard stops the pipeline.
func runHUD(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	if err := hud.Run(ctx, a.Pipeline()); err != nil {
		cancel()
		<-done
		return err
	}
	cancel()
	return <-done
}

// runTray shows the tray menu on the main goroutine, which the platform
// UI requires, and processes frames in the background.
func runTray(ctx context.Context, a *app.App, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(a.Pipeline())
	t.OnQuit(cancel)
	if addr != "" {
		t.OnSettings(func() { openBrowser("http://" + addr) })
	}
	a.Dispatcher().OnAction(t.SetLastGesture)

	done := make(chan error, 1)
	go func() {
		err := a.Run(ctx)
		t.Quit()
		done <- err
	}()

	t.Run()
	cancel()
	return <-done
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
		return
	}
	go cmd.Wait()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\nHand gesture control from webcam landmarks.\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
}
