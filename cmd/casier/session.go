package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dusk-indust/casier/internal/config"
)

func runSession(ctx context.Context, env *cmdEnv, args []string) error {
	var client, evaluation int64Flag
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	fs.Var(&client, "client", "remember this client id")
	name := fs.String("name", "", "client display name")
	fs.Var(&evaluation, "evaluation", "remember this evaluation id")
	forget := fs.Bool("clear", false, "forget the session")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *forget {
		return env.sessions.Save(ctx, &config.Session{UpdatedAt: time.Now().UTC()})
	}

	sess, err := env.sessions.Load(ctx)
	if err != nil {
		return err
	}
	changed := false
	if client.set {
		sess.ClientID, sess.ClientName, sess.EvaluationID = client.v, "", nil
		changed = true
	}
	if *name != "" {
		sess.ClientName = *name
		changed = true
	}
	if evaluation.set {
		sess.EvaluationID = evaluation.ptr()
		changed = true
	}
	if changed {
		sess.UpdatedAt = time.Now().UTC()
		if err := env.sessions.Save(ctx, sess); err != nil {
			return err
		}
	}

	if sess.ClientID == 0 {
		fmt.Fprintln(env.out, "no client selected")
		return nil
	}
	fmt.Fprintf(env.out, "client: %d %s\n", sess.ClientID, sess.ClientName)
	if sess.EvaluationID != nil {
		fmt.Fprintf(env.out, "evaluation: %d\n", *sess.EvaluationID)
	}
	return nil
}
