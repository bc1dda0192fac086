package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/dusk-indust/casier/internal/app"
	"github.com/dusk-indust/casier/internal/status"
)

func runStatus(ctx context.Context, env *cmdEnv, a *app.App, args []string) error {
	var client, evaluation int64Flag
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.Var(&client, "client", "client id (default: session client)")
	fs.Var(&evaluation, "evaluation", "evaluation id (default: session evaluation)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := env.sessions.Load(ctx)
	if err != nil {
		return err
	}
	clientID, evalID := sess.ClientID, sess.EvaluationID
	if client.set {
		clientID = client.v
	}
	if evaluation.set {
		evalID = evaluation.ptr()
	}
	if clientID == 0 {
		return errors.New("status: no client selected; pass -client or run 'casier session -client <id>'")
	}

	cs, err := a.Orchestrator.ClientStatus(ctx, clientID, evalID)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(cs)
	}
	printStatusTable(env, cs)
	return nil
}

func printStatusTable(env *cmdEnv, cs status.ClientStatus) {
	scope := fmt.Sprintf("Client %d", cs.ClientID)
	if cs.EvaluationID != nil {
		scope += fmt.Sprintf(", evaluation %d", *cs.EvaluationID)
	}
	fmt.Fprintln(env.out, scope)

	for _, d := range cs.Documents {
		marker := "  "
		if d.Code == cs.Next {
			marker = "->"
		}
		line := fmt.Sprintf("  %s %-28s [%s]", marker, d.Code, d.State)
		if d.State == status.StateBlocked && len(d.Missing) > 0 {
			line += " needs " + strings.Join(d.Missing, ", ")
		}
		if d.Filename != "" {
			line += "  " + d.Filename
		}
		fmt.Fprintln(env.out, line)
	}
	if cs.Next == "" {
		fmt.Fprintln(env.out, "  Nothing can be generated right now.")
	}
}
