package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/pinchview/internal/app"
	"github.com/ayusman/pinchview/internal/capture"
	"github.com/ayusman/pinchview/internal/config"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/grid"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	"github.com/ayusman/pinchview/internal/plugin"
	"github.com/ayusman/pinchview/internal/publish"
	"github.com/ayusman/pinchview/internal/render"
	"github.com/ayusman/pinchview/internal/server"
	"github.com/ayusman/pinchview/internal/store"
	"github.com/ayusman/pinchview/internal/tray"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.New(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("pinchview - hand tracking viewer")

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, logger log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, a := range detector.CheckEnvironment(cfg.Engine) {
		logger.Warnf("%s", a)
	}

	if err := os.MkdirAll(cfg.Data.Directory, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	session, err := st.Sessions().Start()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		if err := st.Sessions().End(session.ID); err != nil {
			logger.Warnf("end session: %v", err)
		}
	}()
	logger.Infof("session %s started", session.ID)

	settings := app.NewSettingsOptions(st.Settings())
	opts := cfg.Options
	switch saved, err := settings.LoadOptions(); {
	case err == nil:
		opts = saved
		logger.Infof("restored saved options")
	case !errors.Is(err, store.ErrNotFound):
		logger.Warnf("ignoring saved options: %v", err)
	}

	var engine detector.Engine
	mp, err := detector.NewMediaPipeEngine(cfg.Engine, opts)
	if err != nil {
		logger.Warnf("MediaPipe unavailable, frames will show no hands: %v", err)
		engine = detector.NewMockEngine()
	} else {
		engine = mp
	}
	defer engine.Close()

	distance, _ := cfg.DistanceMode()
	offset, _ := cfg.OffsetMode()

	camera := capture.NewCamera(cfg.Camera)
	canvas := render.NewMatCanvas(cfg.Camera.Width, cfg.Camera.Height)
	defer canvas.Close()

	hub := grid.NewHub(logger.WithField("component", "live"))
	surface := server.NewSurface(hub, metric.Zero)

	var trayUI *tray.Tray
	presenters := app.MultiPresenter{surface}
	if cfg.Tray.Enabled {
		trayUI = tray.New(opts.SelfieMode, metric.Zero)
		presenters = append(presenters, trayUI)
	}

	publishers := []publish.Publisher{app.NewHistory(st.Readings(), session.ID)}

	plugins := plugin.NewManager(cfg.Actuator.PluginDir)
	if err := plugins.Discover(); err != nil {
		logger.Warnf("discover plugins: %v", err)
	}
	if cfg.Actuator.Enabled {
		actuator := app.NewActuator(plugins, plugin.NewExecutor(cfg.Actuator.TimeoutMs), cfg.Actuator.Plugin, cfg.Actuator.Action, logger)
		go actuator.Run(ctx)
		publishers = append(publishers, actuator)
		logger.Infof("actuator bound to %s/%s", cfg.Actuator.Plugin, cfg.Actuator.Action)
	}

	if cfg.MQTT.Broker != "" {
		mqttPub, err := publish.NewMQTTPublisher(publish.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
		}, logger)
		if err != nil {
			logger.Warnf("MQTT disabled: %v", err)
		} else {
			defer mqttPub.Close()
			publishers = append(publishers, mqttPub)
		}
	}

	dispatcher := publish.NewDispatcher(logger.WithField("component", "publish"), publish.DefaultQueueSize, publishers...)
	dispatcher.Start(ctx)

	pipeline := app.New(app.Config{
		Camera:       camera,
		Engine:       engine,
		Canvas:       canvas,
		Grid:         hub,
		Presenter:    presenters,
		OptionsStore: settings,
		Dispatcher:   dispatcher,
		Distance:     distance,
		Offset:       offset,
		Options:      opts,
		Logger:       logger,
	})

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Infof("serving static files from: %s", webDir)
	}

	gridCfg := cfg.Grid.Widget
	srv := server.New(server.Config{
		StaticDir:  webDir,
		Controller: pipeline,
		Surface:    surface,
		Hub:        hub,
		Snapshots:  canvas,
		GridConfig: &gridCfg,
		Store:      st,
		Plugins:    plugins,
		Logger:     logger,
	})
	httpSrv := srv.HTTPServer(cfg.Server.Addr)

	errc := make(chan error, 2)
	go func() {
		logger.Infof("starting server on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("server failed: %w", err)
		}
	}()
	go func() {
		if err := pipeline.Run(ctx); err != nil {
			errc <- fmt.Errorf("pipeline failed: %w", err)
		}
	}()

	if trayUI != nil {
		trayUI.OnMirror(func(on bool) {
			next := pipeline.Options()
			next.SelfieMode = on
			if err := pipeline.ApplyOptions(ctx, next); err != nil {
				logger.Warnf("toggle selfie mode: %v", err)
			}
		})
		trayUI.OnOpen(func() {
			openBrowser(viewerURL(cfg.Server.Addr), logger)
		})
		trayUI.OnQuit(stop)
		go func() {
			select {
			case <-ctx.Done():
			case err := <-errc:
				errc <- err
				stop()
			}
			trayUI.Quit()
		}()
		// systray needs the main thread
		trayUI.Run()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server shutdown: %v", err)
	}
	dispatcher.Wait()
	logger.Infof("shut down")
	return runErr
}

func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "pinchview.yaml"
	}
	return filepath.Join(homeDir, ".pinchview", "config.yaml")
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.pinchview/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".pinchview", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string, logger log.Logger) {
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
		logger.Warnf("open browser: %v", err)
	}
}
