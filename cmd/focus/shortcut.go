package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/BSN4/focus/internal/hotkeys"
	"github.com/BSN4/focus/internal/ipc"
	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/x11"
)

func printShortcutUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  focus shortcut list")
	fmt.Fprintln(w, "  focus shortcut set [--mods MODS] [--keycode N] <app> [<key>]")
	fmt.Fprintln(w, "  focus shortcut clear <app>")
	fmt.Fprintln(w, "  focus shortcut clear-all")
	fmt.Fprintln(w, "  focus shortcut record <app>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'focus shortcut <command> --help' for command-specific options.")
}

func runShortcut(args []string) int {
	if len(args) == 0 {
		printShortcutUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printShortcutUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return runShortcutList(args[1:])
	case "set":
		return runShortcutSet(args[1:])
	case "clear":
		return runShortcutClear(args[1:])
	case "clear-all":
		return runShortcutClearAll(args[1:])
	case "record":
		return runShortcutRecord(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown shortcut subcommand: %s\n", args[0])
		return 2
	}
}

// offlineRegistry opens the persisted mapping for direct manipulation when
// the daemon is not running. Mutations are written to disk and picked up
// by the daemon on its next start.
func offlineRegistry() (*hotkeys.Registry, error) {
	path, err := hotkeys.DefaultStorePath()
	if err != nil {
		return nil, err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	store := hotkeys.NewStore(path, log)
	reg := hotkeys.NewRegistry(nil, store, log)
	reg.Restore()
	return reg, nil
}

func runShortcutList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus shortcut list")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List configured app shortcuts.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "shortcut list takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if client.Ping() == nil {
		data, err := client.ListShortcuts()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if len(data.Shortcuts) == 0 {
			fmt.Println("no shortcuts configured")
			return 0
		}
		for _, sc := range data.Shortcuts {
			fmt.Printf("%-24s %s\n", sc.Display, sc.App)
		}
		return 0
	}

	reg, err := offlineRegistry()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	mapping := reg.Shortcuts()
	if len(mapping) == 0 {
		fmt.Println("no shortcuts configured")
		return 0
	}
	apps := make([]string, 0, len(mapping))
	for app := range mapping {
		apps = append(apps, app)
	}
	sort.Strings(apps)
	for _, app := range apps {
		fmt.Printf("%-24s %s\n", mapping[app].String(), app)
	}
	return 0
}

func runShortcutSet(args []string) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus shortcut set [--mods MODS] [--keycode N] <app> [<key>]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Bind a key combination to an application. The key is named by its")
		fmt.Fprintln(os.Stderr, "keysym (a, F5, Return); use --keycode to pass a raw key code instead.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	mods := fs.String("mods", "super", "Modifiers, e.g. \"super\" or \"ctrl+alt\"")
	keyCode := fs.Int("keycode", 0, "Raw X key code (skips key name lookup)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "set requires <app>")
		fs.Usage()
		return 2
	}
	app := fs.Arg(0)

	modMask, err := keycombo.ParseModifiers(*mods)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	kc := uint32(*keyCode)
	if kc == 0 {
		if fs.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "set requires <key> unless --keycode is given")
			fs.Usage()
			return 2
		}
		name := fs.Arg(1)
		conn, cerr := x11.NewConnection()
		if cerr != nil {
			fmt.Fprintf(os.Stderr, "cannot resolve key name %q without an X display: %v\n", name, cerr)
			return 1
		}
		code := conn.KeycodeForName(name)
		conn.Close()
		if code == 0 {
			fmt.Fprintf(os.Stderr, "unknown key name %q\n", name)
			return 1
		}
		kc = uint32(code)
	}

	return applyShortcut(app, keycombo.Combo{KeyCode: kc, Modifiers: modMask})
}

// applyShortcut binds combo to app, confirming interactively when the
// combination is already held by another application. Goes through the
// daemon when it is running so the key grab takes effect immediately.
func applyShortcut(app string, combo keycombo.Combo) int {
	client := ipc.NewClient()
	online := client.Ping() == nil

	var reg *hotkeys.Registry
	owner := ""
	if online {
		if data, err := client.ListShortcuts(); err == nil {
			for _, sc := range data.Shortcuts {
				if sc.App != app && sc.KeyCode == combo.KeyCode && sc.Modifiers == combo.Modifiers {
					owner = sc.App
					break
				}
			}
		}
	} else {
		var err error
		reg, err = offlineRegistry()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if holder, held := reg.IsComboInUse(combo, app); held {
			owner = holder
		}
	}

	if owner != "" && term.IsTerminal(int(os.Stdin.Fd())) {
		keep := true
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s is bound to %s. Move it to %s?", combo, owner, app)).
				Value(&keep),
		))
		if err := form.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if !keep {
			fmt.Println("aborted")
			return 0
		}
	}

	if online {
		if err := client.SetShortcut(app, combo); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else if err := reg.SetShortcut(app, combo); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("bound %s to %s\n", combo, app)
	if !online {
		fmt.Println("(daemon not running; shortcut takes effect when it starts)")
	}
	return 0
}

func runShortcutClear(args []string) int {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus shortcut clear <app>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Remove the application's shortcut.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "clear requires exactly <app>")
		fs.Usage()
		return 2
	}
	app := fs.Arg(0)

	client := ipc.NewClient()
	if client.Ping() == nil {
		if err := client.ClearShortcut(app); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		reg, err := offlineRegistry()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := reg.ClearShortcut(app); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	fmt.Printf("cleared shortcut for %s\n", app)
	return 0
}

func runShortcutClearAll(args []string) int {
	fs := flag.NewFlagSet("clear-all", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus shortcut clear-all")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Remove all app shortcuts.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "clear-all takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if client.Ping() == nil {
		if err := client.ClearShortcuts(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		reg, err := offlineRegistry()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := reg.ClearAll(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	fmt.Println("all shortcuts cleared")
	return 0
}

func runShortcutRecord(args []string) int {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focus shortcut record <app>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Grabs the keyboard and waits for a key combination to bind to")
		fmt.Fprintln(os.Stderr, "the application. Press Escape to cancel.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "record requires exactly <app>")
		fs.Usage()
		return 2
	}
	app := fs.Arg(0)

	conn, err := x11.NewConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shortcut recording requires an X display: %v\n", err)
		return 1
	}
	defer conn.Close()

	fmt.Printf("Press the new shortcut for %s (Escape cancels)...\n", app)
	combo, err := conn.RecordCombo()
	if err != nil {
		if errors.Is(err, x11.ErrRecordCancelled) {
			fmt.Println("cancelled")
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !combo.Valid() {
		fmt.Fprintln(os.Stderr, "at least one of ctrl, alt, super must be held")
		return 1
	}

	fmt.Printf("captured %s\n", combo)
	return applyShortcut(app, combo)
}
