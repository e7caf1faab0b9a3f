package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/BSN4/focus/internal/config"
	"github.com/BSN4/focus/internal/focus"
	"github.com/BSN4/focus/internal/hotkeys"
	"github.com/BSN4/focus/internal/ipc"
	"github.com/BSN4/focus/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: focus daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: focus daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "enable":
		os.Exit(runSetEnabled(os.Args[2:], true))
	case "disable":
		os.Exit(runSetEnabled(os.Args[2:], false))
	case "apps":
		os.Exit(runApps(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "shortcut":
		os.Exit(runShortcut(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: focus <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the focus daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  enable              Turn activation coordination on")
	fmt.Fprintln(w, "  disable             Turn activation coordination off")
	fmt.Fprintln(w, "  apps                List running applications")
	fmt.Fprintln(w, "  reload              Reload configuration from disk")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  shortcut list       List app shortcuts")
	fmt.Fprintln(w, "  shortcut set        Bind a key combination to an app")
	fmt.Fprintln(w, "  shortcut clear      Remove an app's shortcut")
	fmt.Fprintln(w, "  shortcut clear-all  Remove all shortcuts")
	fmt.Fprintln(w, "  shortcut record     Capture a shortcut from the keyboard")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'focus <command> --help' for command-specific options.")
}

// newLogger builds the daemon logger from the logging section of the
// config: human-readable console output on a terminal, JSON otherwise,
// optionally teeing into a log file. The returned func closes the file.
func newLogger(cfg *config.Config) (zerolog.Logger, func()) {
	levelStr := strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	switch levelStr {
	case "":
		levelStr = "info"
	case "warning":
		levelStr = "warn"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if term.IsTerminal(int(os.Stderr.Fd())) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	closeFn := func() {}
	if cfg.Logging.File != "" {
		f, ferr := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", cfg.Logging.File, ferr)
		} else {
			out = zerolog.MultiLevelWriter(out, f)
			closeFn = func() { f.Close() }
		}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn
}

func runDaemon() {
	configPath, err := config.DefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve config path: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()

	logger.Info().
		Str("config", configPath).
		Bool("enabled", cfg.Enabled).
		Int("target_width", cfg.TargetSize.Width).
		Int("target_height", cfg.TargetSize.Height).
		Msg("configuration loaded")

	backend, err := platform.NewLinuxBackendFromDisplay(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to display")
	}
	defer backend.Disconnect()

	storePath, err := hotkeys.DefaultStorePath()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve shortcut store path")
	}
	store := hotkeys.NewStore(storePath, logger)
	registry := hotkeys.NewRegistry(backend, store, logger)

	engine := focus.NewCoordinator(backend, registry, cfg, logger)
	if err := engine.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start activation coordinator")
	}
	defer engine.Stop()

	ipcServer, err := ipc.NewServer(engine, configPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create IPC server")
	}
	if err := ipcServer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start IPC server")
	}
	defer ipcServer.Stop()

	watcher, err := config.NewWatcher(configPath, logger, engine.UpdateConfig)
	if err != nil {
		logger.Warn().Err(err).Msg("config file watching disabled")
	} else {
		defer watcher.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				logger.Info().Msg("received SIGHUP, reloading configuration")
				newCfg, lerr := config.LoadFromPath(configPath)
				if lerr != nil {
					logger.Warn().Err(lerr).Msg("config reload failed, keeping previous configuration")
					continue
				}
				engine.UpdateConfig(newCfg)
			case os.Interrupt, syscall.SIGTERM:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
				engine.Stop()
				ipcServer.Stop()
				backend.StopEventLoop()
				return
			}
		}
	}()

	logger.Info().Msg("focus daemon started")
	backend.EventLoop()
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("enabled:        %v\n", status.Enabled)
	fmt.Printf("center_only:    %v\n", status.CenterOnly)
	fmt.Printf("target_size:    %dx%d\n", status.TargetWidth, status.TargetHeight)
	fmt.Printf("shortcuts:      %d\n", status.ShortcutCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runSetEnabled(args []string, enable bool) int {
	name := "enable"
	desc := "Turn activation coordination on."
	if !enable {
		name = "disable"
		desc = "Turn activation coordination off."
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: focus %s\n", name)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, desc)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Goes through the daemon when it is running, otherwise")
		fmt.Fprintln(os.Stderr, "edits the config file directly.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}

	word := "enabled"
	if !enable {
		word = "disabled"
	}

	client := ipc.NewClient()
	if client.Ping() == nil {
		if err := client.SetEnabled(enable); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("coordination %s\n", word)
		return 0
	}

	configPath, err := config.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := config.SetEnabled(configPath, enable); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("coordination %s (daemon not running; config updated)\n", word)
	return 0
}

func runApps(args []string) int {
	fs := flag.NewFlagSet("apps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus apps [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List running applications as seen by the daemon.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "apps takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	data, err := client.ListApps()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data.Apps); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	if len(data.Apps) == 0 {
		fmt.Println("no running applications")
		return 0
	}
	fmt.Printf("%-32s %8s %-10s %s\n", "APP", "PID", "POLICY", "STATE")
	for _, app := range data.Apps {
		state := "visible"
		if app.Hidden {
			state = "hidden"
		}
		fmt.Printf("%-32s %8d %-10s %s\n", app.ID, app.PID, app.Policy, state)
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to reload its configuration from disk.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("configuration reloaded")
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  focus config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  focus config print [--path PATH] [--defaults] [--live]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/focus/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		p := *path
		if p == "" {
			var err error
			p, err = config.DefaultConfigPath()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		if _, err := config.LoadFromPath(p); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/focus/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		live := fs.Bool("live", false, "Print the running daemon's effective config")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *live && (*printDefaults || *path != "") {
			fmt.Fprintln(os.Stderr, "--live cannot be combined with --path or --defaults")
			return 2
		}

		var cfg *config.Config
		switch {
		case *live:
			data, err := ipc.NewClient().GetConfig()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = &config.Config{
				Enabled:        data.Enabled,
				CenterOnly:     data.CenterOnly,
				TargetSize:     config.Size{Width: data.TargetWidth, Height: data.TargetHeight},
				ExcludedApps:   data.ExcludedApps,
				ShellApps:      data.ShellApps,
				LaunchCommands: data.LaunchCommands,
				Logging:        config.LoggingConfig{Level: data.LogLevel, File: data.LogFile},
			}
		case *printDefaults:
			cfg = config.DefaultConfig()
		default:
			p := *path
			if p == "" {
				var err error
				p, err = config.DefaultConfigPath()
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					return 1
				}
			}
			var err error
			cfg, err = config.LoadFromPath(p)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}
