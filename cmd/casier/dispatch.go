package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dusk-indust/casier/internal/app"
	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/orchestrator"
)

// optionFlags collects repeated -option key=value pairs.
type optionFlags map[string]any

func (o optionFlags) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (o optionFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("option %q: want key=value", s)
	}
	if b, err := strconv.ParseBool(v); err == nil {
		o[k] = b
		return nil
	}
	o[k] = v
	return nil
}

// int64Flag is an optional int64 flag.
type int64Flag struct {
	v   int64
	set bool
}

func (f *int64Flag) String() string {
	if !f.set {
		return ""
	}
	return strconv.FormatInt(f.v, 10)
}

func (f *int64Flag) Set(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

func (f *int64Flag) ptr() *int64 {
	if !f.set {
		return nil
	}
	v := f.v
	return &v
}

func runDispatch(ctx context.Context, env *cmdEnv, a *app.App, args []string) error {
	var (
		client, evaluation, questionnaire int64Flag
		req                               orchestrator.Request
		preview, asJSON                   bool
		options                           = optionFlags{}
	)
	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	fs.Var(&client, "client", "client id (default: session client)")
	fs.Var(&evaluation, "evaluation", "evaluation id (default: session evaluation)")
	fs.Var(&questionnaire, "questionnaire", "questionnaire id")
	fs.StringVar(&req.Category, "category", "", "casier category")
	fs.StringVar(&req.Subcategory, "subcategory", "", "casier subcategory")
	fs.StringVar(&req.DocumentType, "type", "", "document type code")
	fs.BoolVar(&preview, "preview", false, "stop at ready for review instead of completed")
	fs.Var(options, "option", "generation option key=value (repeatable)")
	fs.BoolVar(&asJSON, "json", false, "print the artifact as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := env.sessions.Load(ctx)
	if err != nil {
		return err
	}
	req.ClientID = sess.ClientID
	req.EvaluationID = sess.EvaluationID
	if client.set {
		req.ClientID = client.v
		req.EvaluationID = nil
	}
	if evaluation.set {
		req.EvaluationID = evaluation.ptr()
	}
	req.QuestionnaireID = questionnaire.ptr()
	if preview {
		options["preview"] = true
	}
	if len(options) > 0 {
		req.Options = options
	}

	events := a.Progress.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			fmt.Fprintln(env.out, orchestrator.FormatProgress(ev))
		}
	}()
	res, dispatchErr := a.Orchestrator.Dispatch(ctx, req)
	a.Progress.Close()
	<-done
	a.Progress = nil

	if res != nil {
		if err := printArtifact(env, res, asJSON); err != nil {
			return err
		}
	}
	if dispatchErr != nil {
		return dispatchErr
	}

	sess.ClientID, sess.ClientName, sess.EvaluationID = res.ClientID, res.ClientName, res.EvaluationID
	sess.UpdatedAt = time.Now().UTC()
	return env.sessions.Save(ctx, sess)
}

func runFinalize(ctx context.Context, env *cmdEnv, a *app.App, args []string) error {
	fs := flag.NewFlagSet("finalize", flag.ContinueOnError)
	id := fs.String("id", "", "artifact id")
	asJSON := fs.Bool("json", false, "print the artifact as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("finalize: -id is required")
	}
	res, err := a.Orchestrator.Finalize(ctx, *id)
	if err != nil {
		return err
	}
	return printArtifact(env, res, *asJSON)
}

func runPrereq(ctx context.Context, env *cmdEnv, a *app.App, args []string) error {
	var client, evaluation int64Flag
	fs := flag.NewFlagSet("prereq", flag.ContinueOnError)
	fs.Var(&client, "client", "client id (default: session client)")
	fs.Var(&evaluation, "evaluation", "evaluation id")
	docType := fs.String("type", "", "document type code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docType == "" {
		return errors.New("prereq: -type is required")
	}
	clientID := client.v
	if !client.set {
		sess, err := env.sessions.Load(ctx)
		if err != nil {
			return err
		}
		clientID = sess.ClientID
	}

	res, err := a.Orchestrator.CheckPrerequisites(ctx, clientID, evaluation.ptr(), *docType)
	if err != nil {
		return err
	}
	if res.Satisfied {
		fmt.Fprintf(env.out, "%s: prerequisites satisfied\n", *docType)
	} else {
		fmt.Fprintf(env.out, "%s: missing %s\n", *docType, strings.Join(res.MissingRequired, ", "))
	}
	if len(res.Advisory) > 0 {
		fmt.Fprintf(env.out, "  recommended first: %s\n", strings.Join(res.Advisory, ", "))
	}
	return nil
}

func printArtifact(env *cmdEnv, a *artifact.Artifact, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	fmt.Fprintf(env.out, "%s  %-10s %s\n", a.ID, a.Status, a.Filename)
	if a.FailureReason != "" {
		fmt.Fprintf(env.out, "  reason: %s\n", a.FailureReason)
	}
	return nil
}
