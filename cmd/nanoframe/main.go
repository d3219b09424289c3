package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rexliu/nanoframe/pkg/config"
	"github.com/rexliu/nanoframe/pkg/storage/sqlite"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "init":
		err = initCommand(os.Args[2:])
	case "diag":
		err = diagCommand(os.Args[2:], os.Stdout)
	case "journal":
		err = journalCommand(os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("nanoframe %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: nanoframe <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init                      Write a default config.toml")
	fmt.Println("  diag                      Print resolved config, journal and log paths")
	fmt.Println("  journal calls             Print recent journaled calls as JSON lines")
	fmt.Println("  journal lifecycle         Print lifecycle events of one window")
	fmt.Println("  version                   Print CLI version")
}

func initCommand(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("config", config.DefaultPath(), "Config file to write")
	force := fs.Bool("force", false, "Overwrite existing config if present")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("config already exists at %s (use -force to overwrite)", *path)
	}
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *path)
	return nil
}

func diagCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("diag", flag.ContinueOnError)
	path := fs.String("config", "", "Config file (defaults to the user config directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	shown := *path
	if shown == "" {
		shown = config.DefaultPath()
	}
	fmt.Fprintf(out, "Config: %s\n", shown)
	fmt.Fprintf(out, "App name: %s\n", cfg.AppName)
	fmt.Fprintf(out, "Poll interval: %s\n", cfg.PollInterval())
	fmt.Fprintf(out, "Drain timeout: %s\n", cfg.DrainTimeout())
	fmt.Fprintf(out, "Log level: %s\n", cfg.Logging.Level)
	if cfg.Logging.FilePath != "" {
		fmt.Fprintf(out, "Log file: %s\n", cfg.Logging.FilePath)
	}
	fmt.Fprintf(out, "Journal: %s (enabled=%t)\n", journalPath(cfg, ""), cfg.Journal.Enabled)
	return nil
}

func journalCommand(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: nanoframe journal <calls|lifecycle> [options]")
	}
	sub := args[0]
	fs := flag.NewFlagSet("journal "+sub, flag.ContinueOnError)
	path := fs.String("config", "", "Config file (defaults to the user config directory)")
	db := fs.String("db", "", "Override journal database path")
	limit := fs.Int("limit", 50, "Maximum calls to print")
	window := fs.String("window", "", "Window id for lifecycle")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := sqlite.Open(journalPath(cfg, *db))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	switch sub {
	case "calls":
		calls, err := store.Calls(ctx, *limit)
		if err != nil {
			return err
		}
		for _, rec := range calls {
			if err := enc.Encode(callView(rec)); err != nil {
				return err
			}
		}
		return nil
	case "lifecycle":
		if *window == "" {
			return errors.New("-window is required")
		}
		events, err := store.Lifecycle(ctx, *window)
		if err != nil {
			return err
		}
		for _, rec := range events {
			if err := enc.Encode(lifecycleView{WindowID: rec.WindowID, Event: rec.Event, Cause: rec.Cause, At: rec.At.UTC()}); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown journal subcommand %q", sub)
	}
}

func journalPath(cfg *config.HostConfig, override string) string {
	switch {
	case override != "":
		return override
	case cfg.Journal.Path != "":
		return cfg.Journal.Path
	default:
		return config.DefaultJournalPath()
	}
}

type callRow struct {
	TraceID    string          `json:"traceId"`
	Method     string          `json:"method"`
	RequestID  string          `json:"requestId"`
	WindowID   string          `json:"windowId,omitempty"`
	ErrorCode  int             `json:"errorCode,omitempty"`
	Error      string          `json:"error,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	DurationUs int64           `json:"durationUs"`
}

func callView(rec sqlite.CallRecord) callRow {
	return callRow{
		TraceID:    rec.TraceID,
		Method:     rec.Method,
		RequestID:  rec.RequestID,
		WindowID:   rec.WindowID,
		ErrorCode:  rec.ErrorCode,
		Error:      rec.ErrorMessage,
		Params:     rec.Params,
		StartedAt:  rec.StartedAt.UTC(),
		DurationUs: rec.Duration.Microseconds(),
	}
}

type lifecycleView struct {
	WindowID string    `json:"windowId"`
	Event    string    `json:"event"`
	Cause    string    `json:"cause,omitempty"`
	At       time.Time `json:"at"`
}
