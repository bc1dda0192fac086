package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dusk-indust/casier/internal/app"
	"github.com/dusk-indust/casier/internal/mcptools"
	"github.com/dusk-indust/casier/internal/rpcapi"
)

// runServeMCP serves the document tools on stdio.
func runServeMCP(ctx context.Context, env *cmdEnv, a *app.App) error {
	go reloadOnHangup(ctx, env, a)

	svc := mcptools.NewDocumentService(a.Orchestrator, a.Registry, a.Delivery, a.Directory)
	env.logger.Info("serving MCP on stdio")
	return mcptools.RunStdio(ctx, mcptools.NewServer(svc))
}

// runServeHTTP serves JSON-RPC and the lifecycle event stream until ctx is
// cancelled.
func runServeHTTP(ctx context.Context, env *cmdEnv, a *app.App, args []string) error {
	fs := flag.NewFlagSet("serve-http", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	go reloadOnHangup(ctx, env, a)

	srv := rpcapi.NewServer(a.Orchestrator, rpcapi.WithLogger(env.logger.Named("rpc")))
	go srv.Broadcast(ctx, a.Progress.Subscribe())
	return srv.ListenAndServe(ctx, *addr)
}

// reloadOnHangup reloads the casier catalog and the dependency graph on
// SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, env *cmdEnv, a *app.App) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.Reload(ctx); err != nil {
				env.logger.Error("reload failed", zap.Error(err))
			}
		}
	}
}
