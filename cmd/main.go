// omniclick - desktop click and key automation
// Driven by global hotkeys and a system tray menu.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"omniclick/internal/activity"
	"omniclick/internal/app"
	"omniclick/internal/autostart"
	"omniclick/internal/clicker"
	"omniclick/internal/config"
	"omniclick/internal/hotkey"
	"omniclick/internal/input"
	"omniclick/internal/logger"
	"omniclick/internal/platform"
	"omniclick/internal/screen"
	"omniclick/internal/selection"
	"omniclick/internal/tray"
	"omniclick/internal/vision"
)

var version = "0.3.0"

// rootOptions holds global flags for all commands.
type rootOptions struct {
	settings string
	verbose  bool
	noTray   bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "omniclick",
		Short:         "omniclick - automated clicks and key presses",
		Long:          "Clicks at the cursor, on a colour, on an image or through a list of points, and plays key sequences. Start and stop with global hotkeys or from the tray.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logger.Init(opts.verbose)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.settings, "settings", "", "settings file (default: per-user config dir)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	cmd.Flags().BoolVar(&opts.noTray, "no-tray", false, "run without the tray icon, hotkeys only")

	cmd.AddCommand(newCleanupCommand(opts))
	return cmd
}

func openConfig(opts *rootOptions) (*config.Manager, error) {
	if opts.settings != "" {
		return config.NewManagerAt(opts.settings), nil
	}
	return config.NewManager()
}

func runService(ctx context.Context, opts *rootOptions) error {
	log := logger.Named("main")
	defer func() { _ = zap.L().Sync() }()

	cfgMgr, err := openConfig(opts)
	if err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Warn("Config: failed to load settings, using defaults", zap.Error(err))
	}
	settings := cfgMgr.Get()

	host := platform.Detect(platform.DefaultProbes())
	if host.OS == "windows" && !host.Admin {
		log.Info("Note: hotkeys are not seen while an elevated window has focus unless omniclick runs as Administrator")
	}

	desktop := screen.NewDesktop()
	robot := input.NewRobot()
	store := vision.NewTemplateStore(settings.TemplateDir)
	hkMgr := hotkey.NewManager()
	monitor := activity.NewMonitor(robot.Position, host.Foreground)
	events := app.NewEvents(64)

	engine := clicker.NewEngine(clicker.Deps{
		Injector:      robot,
		Fast:          host.Fast,
		Colors:        vision.NewColorSearch(desktop, settings.RecheckInterval),
		Images:        vision.NewImageSearch(desktop, host.Matcher, store, settings.RecheckInterval),
		EmergencyHeld: hkMgr.EmergencyHeld,
		CursorMoved:   monitor.Sync,
		Listener:      events,
	})

	a := app.New(app.Deps{
		Config:   cfgMgr,
		Engine:   engine,
		Events:   events,
		Hotkeys:  hkMgr,
		Selector: selection.New(robot, hkMgr, desktop, store),
		Monitor:  monitor,
		Store:    store,
	})

	if err := hkMgr.Start(); err != nil {
		log.Warn("Hotkey Engine failed to start, use the tray menu", zap.Error(err))
	}
	defer hkMgr.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("omniclick running",
		zap.String("settings", cfgMgr.Path()),
		zap.String("start", settings.HotkeyStart),
		zap.String("stop", settings.HotkeyStop),
		zap.Strings("emergency", settings.EmergencyHotkeys))

	if opts.noTray {
		return a.Run(ctx)
	}

	t := tray.New("omniclick", "Stopped")
	var loginArgs []string
	if opts.settings != "" {
		loginArgs = []string{"--settings", opts.settings}
	}
	login, err := autostart.New("omniclick", loginArgs...)
	if err != nil {
		log.Warn("Autostart: unavailable", zap.Error(err))
	}
	newMenu(t, a, cfgMgr, login)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer t.Stop()
		return a.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-t.Done():
			a.Quit()
		case <-a.Done():
		}
		return nil
	})

	// systray needs the main thread
	t.Run()
	a.Quit()
	return g.Wait()
}
