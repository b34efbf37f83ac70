// Command browser-use drives a browser through an LLM-directed step loop
// from the shell.
//
// Usage:
//
//	browser-use -p "find the top HN post and open it"
//	browser-use --provider openai --model gpt-4o "search for go 1.25 release notes"
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hahsanayub/browseragent/actions"
	"github.com/hahsanayub/browseragent/agent"
	"github.com/hahsanayub/browseragent/config"
	"github.com/hahsanayub/browseragent/idgen"
	"github.com/hahsanayub/browseragent/observability"
	"github.com/hahsanayub/browseragent/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	args, err := config.ParseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if config.IsUsageError(err) {
			os.Exit(config.ExitUsage)
		}
		os.Exit(config.ExitRuntime)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, args); err != nil {
		fmt.Fprintln(os.Stderr, "browser-use:", err)
		os.Exit(config.ExitRuntime)
	}
}

func run(ctx context.Context, logger *slog.Logger, args *config.CLIArgs) error {
	routed, err := config.RouteModel(args.Provider, args.Model)
	if err != nil {
		return fmt.Errorf("route model: %w", err)
	}

	llmClient, err := buildClient(routed, logger)
	if err != nil {
		return err
	}

	sess := session.New(session.NewConfig(args.ToSessionParams(), args.ToDomainPolicy(), logger))
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer sess.Stop(context.Background())

	registry := actions.NewDefaultRegistry(sess,
		sess.LastSelectorMap,
		func(ctx context.Context, query, markdown string, links bool) (string, error) {
			out, err := llmClient.Invoke(ctx, fmt.Sprintf(
				"Extract %q from the following page content and put the answer in \"thinking\"; current_state and action may be empty:\n\n%s",
				query, markdown))
			if err != nil {
				return "", err
			}
			return out.Thinking, nil
		},
	)

	if args.DebugAddr != "" {
		go serveDebug(args.DebugAddr, sess, logger)
	}

	if args.MCP {
		return runMCPServer(ctx, registry)
	}

	events, closeEvents, err := buildEventSink(logger)
	if err != nil {
		logger.Warn("browser-use: event logging disabled", "error", err)
	}
	if closeEvents != nil {
		defer closeEvents()
	}

	fallback := agent.NewFallbackInvoker(llmClient, llmClient, 3, time.Second, logger)

	newLoop := func(task string) *agent.Loop {
		return agent.NewLoop(sess, registry, fallback, events, agent.LoopConfig{
			UserRequest:    task,
			AllowedDomains: args.AllowedDomains,
		})
	}

	if isInteractive() {
		return runInteractive(ctx, logger, newLoop)
	}

	loop := newLoop(args.Task)
	if err := loop.Run(ctx); err != nil {
		return err
	}
	fmt.Println(loop.History().String())
	return nil
}

// runMCPServer exposes the action registry as MCP tools over stdio instead
// of running the step loop, per SPEC_FULL.md §2's `--mcp` surface.
func runMCPServer(ctx context.Context, registry *actions.Registry) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "browser-use", Version: "0.1.0"}, nil)
	registry.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// serveDebug runs the optional local debug HTTP server (`--debug-addr`):
// /healthz for liveness, /state for a live BrowserStateSummary JSON dump.
// Debugging aid only, never part of the step loop's critical path, so
// errors are logged rather than surfaced to run()'s caller.
func serveDebug(addr string, sess *session.BrowserSession, logger *slog.Logger) {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		summary, err := sess.Capture(r.Context(), session.CaptureOptions{})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			logger.Warn("browser-use: debug /state encode failed", "error", err)
		}
	})
	logger.Info("browser-use: debug server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("browser-use: debug server stopped", "error", err)
	}
}

// buildClient constructs the agent.Client for a routed provider. Only
// providers with an OpenAI-compatible chat-completions surface (openai,
// cerebras, vercel, browser-use, ollama) are wired; others report an error
// naming what's missing rather than silently falling back.
func buildClient(routed config.RoutedModel, logger *slog.Logger) (agent.Client, error) {
	base := config.BaseURL(routed.Provider)
	if base == "" {
		return nil, fmt.Errorf("provider %q has no OpenAI-compatible endpoint wired", routed.Provider)
	}
	apiKey := config.APIKey(routed.Provider)
	return agent.NewOpenAIClient(base, apiKey, routed.Model, logger), nil
}

func buildEventSink(logger *slog.Logger) (*agent.StepEventSink, func(), error) {
	dbPath := config.Dir() + "/events.db"
	if err := os.MkdirAll(config.Dir(), 0o755); err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, err
	}
	elog := observability.NewEventLogger(db)
	if err := elog.Init(); err != nil {
		db.Close()
		return nil, nil, err
	}
	sink := agent.NewStepEventSink(elog, idgen.New())
	return sink, func() { db.Close() }, nil
}

func isInteractive() bool {
	if os.Getenv("BROWSER_USE_CLI_FORCE_INTERACTIVE") == "1" {
		return true
	}
	stdinStat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	stdoutStat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (stdinStat.Mode()&os.ModeCharDevice) != 0 && (stdoutStat.Mode()&os.ModeCharDevice) != 0
}

// runInteractive re-runs loop.Run once per typed command, persisting
// command history to config.HistoryStore, per spec.md §6's interactive mode.
func runInteractive(ctx context.Context, logger *slog.Logger, newLoop func(task string) *agent.Loop) error {
	history := config.LoadHistoryStore()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("browser-use interactive mode. Type 'help' for commands, 'exit' to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if config.IsExitCommand(line) {
			return nil
		}
		if config.IsHelpCommand(line) {
			fmt.Println("commands: exit, quit, :q (terminate); help, ? (this text); anything else is run as a task")
			continue
		}

		if err := history.Append(line); err != nil {
			logger.Warn("browser-use: failed to persist command history", "error", err)
		}

		loop := newLoop(line)
		if err := loop.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "browser-use:", err)
			continue
		}
		fmt.Println(loop.History().String())
	}
}
