package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dusk-indust/casier/internal/app"
	"github.com/dusk-indust/casier/internal/config"
	"github.com/dusk-indust/casier/internal/logging"
)

// version is set by goreleaser at build time.
var version = "dev"

// globalFlags are accepted before the command name.
type globalFlags struct {
	Dir       string
	LogLevel  string
	LogFormat string
	Version   bool
}

const usage = `usage: casier [flags] <command> [command flags]

commands:
  dispatch     generate a document
  finalize     mark a previewed document as completed
  deliver      download a generated document
  prereq       show prerequisite status for a document type
  status       show every document type for the current client
  check-graph  validate the dependency graph and print its order
  export       print the catalog as JSON or a Mermaid diagram
  seed         copy catalog, graph and clients into Postgres/Kuzu
  session      show or change the remembered client and evaluation
  serve-mcp    run as an MCP server on stdio
  serve-http   serve JSON-RPC on /rpc and lifecycle events on /events
  version      print version and exit
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var flags globalFlags

	fs := flag.NewFlagSet("casier", flag.ContinueOnError)
	fs.StringVar(&flags.Dir, "dir", ".", "directory holding casier.yml")
	fs.StringVar(&flags.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&flags.LogFormat, "log-format", "", "log format (console, json)")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.Load(flags.Dir)
	if err != nil {
		return err
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Log.Format = flags.LogFormat
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	env := &cmdEnv{cfg: cfg, logger: logger, out: stdout, sessions: config.FileSessionStore{Path: cfg.SessionFile}}

	switch cmd {
	case "dispatch":
		return env.withApp(ctx, func(a *app.App) error { return runDispatch(ctx, env, a, rest) })
	case "finalize":
		return env.withApp(ctx, func(a *app.App) error { return runFinalize(ctx, env, a, rest) })
	case "deliver":
		return env.withApp(ctx, func(a *app.App) error { return runDeliver(ctx, env, a, rest) })
	case "prereq":
		return env.withApp(ctx, func(a *app.App) error { return runPrereq(ctx, env, a, rest) })
	case "status":
		return env.withApp(ctx, func(a *app.App) error { return runStatus(ctx, env, a, rest) })
	case "check-graph":
		return runCheckGraph(ctx, env, rest)
	case "export":
		return env.withApp(ctx, func(a *app.App) error { return runExport(env, a, rest) })
	case "seed":
		return app.Seed(ctx, cfg, logger)
	case "session":
		return runSession(ctx, env, rest)
	case "serve-http":
		return env.withApp(ctx, func(a *app.App) error { return runServeHTTP(ctx, env, a, rest) })
	case "serve-mcp":
		return env.withApp(ctx, func(a *app.App) error { return runServeMCP(ctx, env, a) })
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// cmdEnv carries what every command needs.
type cmdEnv struct {
	cfg      *config.Config
	logger   *zap.Logger
	out      io.Writer
	sessions config.SessionStore
}

func (e *cmdEnv) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
