package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrack/ShootOFF-sub002/internal/app"
	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/config"
	"github.com/phrack/ShootOFF-sub002/internal/debugview"
	"github.com/phrack/ShootOFF-sub002/internal/detector"
	"github.com/phrack/ShootOFF-sub002/internal/server"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
	"github.com/phrack/ShootOFF-sub002/internal/store"
	"github.com/phrack/ShootOFF-sub002/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	withTray := flag.Bool("tray", false, "show a system tray icon")
	listen := flag.String("listen", "", "HTTP listen address (overrides the config file)")
	flag.Parse()

	fmt.Println("ShotDetect - Laser Shot Detection")

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.ListenAddr = listen
	}

	dataDir, err := cfg.GetDataDir()
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "shotdetect.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	views, recorder, plotter, err := debugViews(cfg)
	if err != nil {
		log.Fatalf("Failed to set up debug output: %v", err)
	}

	ignore, err := shot.ParseColor(cfg.GetIgnoreLaserColor())
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	a := app.New(app.Config{
		Store: st,
		Detection: detector.Config{
			MinShotDimension: cfg.GetMinShotDimension(),
			IgnoreLaserColor: ignore,
			MarkerRadius:     cfg.GetMarkerRadius(),
		},
		Enabled:   cfg.GetDetectionEnabled(),
		DebugView: views,
	})
	a.AddListener(app.LogListener{})
	a.AddListener(app.NewJournalListener(st))

	for _, cc := range cfg.GetCameras() {
		opts := app.CameraOptions{FPS: cc.GetFPS(), ROI: cc.Rect()}
		if err := a.AddCamera(cc.Name, capture.NewCameraWithSize(cc.Device, cc.Width, cc.Height), opts); err != nil {
			log.Fatalf("Failed to add camera %s: %v", cc.Name, err)
		}
	}

	webDir := cfg.GetStaticDir()
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})
	httpSrv := &http.Server{Addr: cfg.GetListenAddr(), Handler: srv}
	httpSrv.RegisterOnShutdown(srv.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection: %v", err)
	}

	g.Go(func() error {
		fmt.Printf("Starting server on %s\n", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if *withTray {
		runTray(ctx, a, stop, "http://"+browserAddr(httpSrv.Addr))
	}

	if err := g.Wait(); err != nil {
		log.Printf("Server failed: %v", err)
	}

	a.Close()
	if plotter != nil {
		files, err := plotter.GeneratePlots()
		if err != nil {
			log.Printf("Failed to write plots: %v", err)
		}
		for _, f := range files {
			log.Printf("Wrote %s", f)
		}
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Printf("Failed to close snapshot log: %v", err)
		}
	}
}

// debugViews builds the snapshot consumers requested by the config.
func debugViews(cfg *config.Config) (detector.DebugView, *debugview.Recorder, *debugview.Plotter, error) {
	var (
		views    debugview.Multi
		recorder *debugview.Recorder
		plotter  *debugview.Plotter
	)
	if path := cfg.GetSnapshotLog(); path != "" {
		r, err := debugview.NewRecorder(path)
		if err != nil {
			return nil, nil, nil, err
		}
		recorder = r
		views = append(views, r)
		log.Printf("Recording snapshots to %s", path)
	}
	if dir := cfg.GetPlotPath(); dir != "" {
		plotter = debugview.NewPlotter(dir)
		views = append(views, plotter)
	}
	if len(views) == 0 {
		return nil, nil, nil, nil
	}
	return views, recorder, plotter, nil
}

// runTray shows the tray icon on the main thread until quit is chosen or
// ctx ends.
func runTray(ctx context.Context, a *app.App, stop context.CancelFunc, settingsURL string) {
	t := tray.New(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnSettings(func() {
		if err := openBrowser(settingsURL); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(stop)
	a.AddListener(t)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func browserAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
