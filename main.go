package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/tabpreview/internal/applog"
	"github.com/lotas/tabpreview/internal/cdp"
	"github.com/lotas/tabpreview/internal/config"
	"github.com/lotas/tabpreview/internal/export"
	"github.com/lotas/tabpreview/internal/firefox"
	"github.com/lotas/tabpreview/internal/resolver"
	"github.com/lotas/tabpreview/internal/server"
	"github.com/lotas/tabpreview/internal/store"
	"github.com/lotas/tabpreview/internal/tui"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "resolve":
			runResolve(os.Args[2:])
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabpreview", flag.ExitOnError)
	cfg := loadConfig(fs, os.Args[1:])
	initLog(cfg)
	defer applog.Close()

	host, srv, err := buildHost(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st := store.New(resolver.New(host))
	model := tui.NewModel(tui.Options{
		Store:  st,
		Source: cfg.Source,
		Server: srv,
		Follow: cfg.Follow,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`tabpreview — preview and edit the active tab's share metadata

Usage:
  tabpreview                         Start the preview panel (default)
  tabpreview resolve [--json]        Resolve once and print markdown or JSON
  tabpreview profiles                List Firefox profiles

Flags (all commands except profiles):
  --config <file>        YAML config (default: ~/.config/tabpreview/config.yaml)
  --source <name>        live | cdp | firefox (default: live)
  --port <n>             WebSocket port for the extension (default: 19191)
  --profile <name>       Firefox profile for --source firefox
  --cdp-url <url>        DevTools endpoint for --source cdp (default: http://127.0.0.1:9222)
  --fetch                Fetch the page over HTTP when the tab cannot be scripted
  --follow               Re-resolve when the extension reports a tab change

Keys:
  e  edit    r  refresh    c  copy markdown link    q  quit

Environment:
  TABPREVIEW_SOURCE, TABPREVIEW_PORT, TABPREVIEW_PROFILE,
  TABPREVIEW_CDP_URL, TABPREVIEW_LOG_DIR
`)
}

// loadConfig layers flags over the config file and environment.
func loadConfig(fs *flag.FlagSet, args []string) config.Config {
	configPath := fs.String("config", "", "YAML config file")
	source := fs.String("source", "", "Tab source: live, cdp or firefox")
	port := fs.Int("port", 0, "WebSocket port for the extension")
	profile := fs.String("profile", "", "Firefox profile name")
	cdpURL := fs.String("cdp-url", "", "Chrome DevTools endpoint")
	fetch := fs.Bool("fetch", false, "Fetch the page when the tab cannot be scripted")
	follow := fs.Bool("follow", false, "Re-resolve on tab change events")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *profile != "" {
		cfg.Profile = *profile
	}
	if *cdpURL != "" {
		cfg.CDPURL = *cdpURL
	}
	if *fetch {
		cfg.Fetch = true
	}
	if *follow {
		cfg.Follow = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func initLog(cfg config.Config) {
	dir := cfg.LogDir
	if dir == "" {
		dir = applog.DefaultDir()
	}
	if err := applog.Init(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open log in %s: %v\n", dir, err)
	}
}

// buildHost returns the TabHost for cfg.Source. The server is non-nil
// only for the live source; the caller starts it.
func buildHost(cfg config.Config) (resolver.TabHost, *server.Server, error) {
	timeout := time.Duration(cfg.RequestTimeout)
	switch cfg.Source {
	case config.SourceLive:
		srv := server.New(cfg.Port)
		return server.NewHost(srv, timeout), srv, nil
	case config.SourceCDP:
		return cdp.NewHost(cfg.CDPURL, timeout), nil, nil
	case config.SourceFirefox:
		host, profile, err := firefox.OpenProfile(firefox.Root(), cfg.Profile, cfg.Fetch)
		if err != nil {
			return nil, nil, fmt.Errorf("firefox profile: %w", err)
		}
		applog.Info("firefox.profile", "name", profile.Name, "path", profile.Path)
		return host, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func runResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "Print JSON instead of markdown")
	cfg := loadConfig(fs, args)
	initLog(cfg)
	defer applog.Close()

	host, srv, err := buildHost(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if srv != nil {
		go srv.ListenAndServe(ctx)
		fmt.Fprintf(os.Stderr, "Waiting for browser extension on port %d...\n", cfg.Port)
		waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
		err := srv.WaitConnected(waitCtx)
		waitCancel()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: timed out waiting for extension (10s)")
			os.Exit(1)
		}
	}

	st := store.New(resolver.New(host))
	if err := st.Reresolve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	m := st.Current()

	if *jsonFlag {
		out, err := export.JSON(*m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}
	fmt.Print(export.Markdown(*m))
}

func runProfiles() {
	profiles, err := firefox.Profiles(firefox.Root())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering Firefox profiles: %v\n", err)
		os.Exit(1)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles found.")
		os.Exit(1)
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}
