// ABOUTME: Entry point for the parley terminal chat client
// ABOUTME: Wires config, store, registry, and services into an interactive command loop

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/parley/internal/api"
	"github.com/2389/parley/internal/config"
	"github.com/2389/parley/internal/exchange"
	"github.com/2389/parley/internal/feedback"
	"github.com/2389/parley/internal/history"
	"github.com/2389/parley/internal/registry"
	"github.com/2389/parley/internal/render"
	"github.com/2389/parley/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                     _
 _ __   __ _ _ __| | ___ _   _
| '_ \ / _' | '__| |/ _ \ | | |
| |_) | (_| | |  | |  __/ |_| |
| .__/ \__,_|_|  |_|\___|\__, |
|_|                      |___/
`

// getConfigPath returns the path to the parley config file.
// Priority: PARLEY_CONFIG env var > XDG_CONFIG_HOME/parley/parley.yaml > ~/.config/parley/parley.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PARLEY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "parley.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "parley.yaml")
}

func main() {
	// A .env alongside the binary can supply ${VAR} values for the config
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	prefs, err := loadPrefs(getPrefsPath())
	if err != nil {
		return fmt.Errorf("loading prefs: %w", err)
	}
	if !prefs.UI.Color {
		color.NoColor = true
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Server:    %s\n", cfg.Server.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	fmt.Println()
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	reg, err := registry.New(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("loading conversations: %w", err)
	}

	client := api.NewClient(cfg.Server.BaseURL, logger)
	terminal := render.NewTerminal(os.Stdout)
	pipeline := feedback.New(reg, client, feedback.Meta{
		Strategy:      cfg.Feedback.Strategy,
		PromptVersion: cfg.Feedback.PromptVersion,
		ModelName:     cfg.Feedback.ModelName,
	}, logger)
	ex := exchange.New(reg, client, terminal, terminal, logger)
	ctrl := history.New(reg, pipeline, terminal, logger)

	if err := ctrl.Init(ctx); err != nil {
		return fmt.Errorf("initializing view: %w", err)
	}

	loopErr := commandLoop(ctx, prefs, reg, ex, ctrl, pipeline, terminal)

	// Drain in-flight feedback submissions before the store closes
	pipeline.Wait()
	return loopErr
}

func commandLoop(ctx context.Context, prefs *Prefs, reg *registry.Registry, ex *exchange.Exchange, ctrl *history.Controller, pipeline *feedback.Pipeline, terminal *render.Terminal) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(prefs.UI.Prompt)

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := handleCommand(ctx, input, prefs, reg, ctrl, pipeline, terminal); err != nil {
				terminal.Alert(err.Error())
			}
			fmt.Println()
			continue
		}

		if err := ex.Send(ctx, input); err != nil {
			terminal.Alert(err.Error())
		}
		fmt.Println()
	}
}

func handleCommand(ctx context.Context, input string, prefs *Prefs, reg *registry.Registry, ctrl *history.Controller, pipeline *feedback.Pipeline, terminal *render.Terminal) error {
	cmd, args := input, ""
	if idx := strings.IndexByte(input, ' '); idx >= 0 {
		cmd, args = input[:idx], strings.TrimSpace(input[idx+1:])
	}

	switch cmd {
	case "/new":
		_, err := ctrl.NewConversation(ctx)
		return err

	case "/chats":
		terminal.History(ctrl.Entries())
		return nil

	case "/open":
		if args == "" {
			return fmt.Errorf("usage: /open <number|id>")
		}
		id, err := resolveConversation(ctrl, args)
		if err != nil {
			return err
		}
		return ctrl.Select(id)

	case "/rename":
		if args == "" {
			return fmt.Errorf("usage: /rename <title>")
		}
		return ctrl.Rename(ctx, reg.ActiveID(), args)

	case "/delete":
		id := reg.ActiveID()
		if args != "" {
			var err error
			id, err = resolveConversation(ctrl, args)
			if err != nil {
				return err
			}
		}
		if id == "" {
			return fmt.Errorf("no conversation to delete")
		}
		return ctrl.Delete(ctx, id)

	case "/feedback":
		switch args {
		case "up":
			pipeline.Send(feedback.SentimentThumbsUp)
		case "down":
			pipeline.Send(feedback.SentimentThumbsDown)
		default:
			return fmt.Errorf("usage: /feedback up|down")
		}
		return nil

	case "/export":
		return exportActive(reg, prefs, args)

	case "/help":
		printHelp()
		return nil

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// resolveConversation accepts either a 1-based list position (as shown by
// /chats) or a raw conversation id.
func resolveConversation(ctrl *history.Controller, arg string) (string, error) {
	entries := ctrl.Entries()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1].ID, nil
	}
	for _, e := range entries {
		if e.ID == arg {
			return e.ID, nil
		}
	}
	return "", fmt.Errorf("no conversation %q", arg)
}

// exportActive writes the active conversation as a standalone HTML file.
func exportActive(reg *registry.Registry, prefs *Prefs, path string) error {
	id := reg.ActiveID()
	if id == "" {
		return fmt.Errorf("no conversation to export")
	}
	transcript, err := reg.Transcript(id)
	if err != nil {
		return err
	}

	if path == "" {
		dir := prefs.Export.Dir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, fmt.Sprintf("parley-%s.html", id))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := render.NewHTMLWriter().Write(f, reg.Title(id), transcript); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// printHelp displays available commands.
func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /new               Start a new conversation")
	fmt.Println("  /chats             List conversations")
	fmt.Println("  /open <n|id>       Switch to a conversation")
	fmt.Println("  /rename <title>    Rename the active conversation")
	fmt.Println("  /delete [n|id]     Delete a conversation (default: active)")
	fmt.Println("  /feedback up|down  Rate the active conversation")
	fmt.Println("  /export [path]     Export the active conversation as HTML")
	fmt.Println("  /help              Show this help")
	fmt.Println("  /quit              Exit")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
