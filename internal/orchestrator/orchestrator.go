// Package orchestrator turns document requests into generation jobs. It
// validates the request, checks prerequisites against the dependency graph,
// resolves the casier, names the file and drives the artifact through its
// lifecycle while the remote service generates it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/genclient"
	"github.com/dusk-indust/casier/internal/nomenclature"
	"github.com/dusk-indust/casier/internal/registry"
	"github.com/dusk-indust/casier/internal/status"
)

// Request asks for one document.
type Request struct {
	ClientID        int64          `json:"clientId"`
	EvaluationID    *int64         `json:"evaluationId,omitempty"`
	QuestionnaireID *int64         `json:"questionnaireId,omitempty"`
	Category        string         `json:"category"`
	Subcategory     string         `json:"subcategory"`
	DocumentType    string         `json:"documentType"`
	Options         map[string]any `json:"options,omitempty"`
}

// Resolver looks casiers up by key.
type Resolver interface {
	Resolve(category, subcategory, documentType string) (registry.Casier, error)
}

// GraphProvider returns the dependency graph currently in force.
type GraphProvider interface {
	Graph() *depgraph.Graph
}

// Locker guards a dispatch key. TryLock returns ErrDispatchInProgress
// (possibly wrapped) when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}

// Orchestrator dispatches generation requests. It is safe for concurrent use.
type Orchestrator struct {
	resolver  Resolver
	graph     GraphProvider
	store     artifact.Store
	generator genclient.Generator
	directory Directory

	locker   Locker
	logger   *zap.Logger
	progress *ProgressReporter
	now      func() time.Time
	timeout  time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker installs a Locker so concurrent dispatches of the same document
// are rejected.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgress routes lifecycle events to pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(o *Orchestrator) { o.progress = pr }
}

// WithClock overrides the clock used for filenames and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithGenerationTimeout bounds each call to the generation service.
func WithGenerationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New returns an Orchestrator wired to its collaborators.
func New(resolver Resolver, graph GraphProvider, store artifact.Store, gen genclient.Generator, dir Directory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:  resolver,
		graph:     graph,
		store:     store,
		generator: gen,
		directory: dir,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultOptions are sent with every job unless the caller overrides them.
func DefaultOptions() map[string]any {
	return map[string]any{
		"includeLogo":     true,
		"includeDiagrams": true,
		"includePricing":  false,
		"detailLevel":     "standard",
		"language":        "fr",
	}
}

// Dispatch validates req, creates an artifact and generates it. No artifact
// is created when the request is rejected before submission; otherwise
// exactly one artifact is created and its final state is returned along with
// any *GenerationError.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) (*artifact.Artifact, error) {
	req.Category = strings.TrimSpace(req.Category)
	req.Subcategory = strings.TrimSpace(req.Subcategory)
	req.DocumentType = strings.TrimSpace(req.DocumentType)

	client, err := o.validateShape(ctx, req)
	if err != nil {
		return nil, err
	}
	g := o.graph.Graph()
	if g == nil {
		return nil, errors.New("orchestrator: no dependency graph loaded")
	}
	if err := o.validateDocumentType(ctx, g, req); err != nil {
		return nil, err
	}
	if err := o.checkPrerequisites(ctx, g, req); err != nil {
		return nil, err
	}

	casier, err := o.resolver.Resolve(req.Category, req.Subcategory, req.DocumentType)
	if err != nil {
		return nil, err
	}

	now := o.now()
	filename := o.filename(casier, client, now)

	if o.locker != nil {
		unlock, err := o.locker.TryLock(ctx, dispatchKey(req))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	options := buildOptions(req.Options, casier, filename)
	a := artifact.Artifact{
		ID:           artifact.NewID(),
		Name:         displayName(casier, req),
		Filename:     filename,
		ClientID:     req.ClientID,
		ClientName:   client.Name,
		EvaluationID: req.EvaluationID,
		Category:     casier.Category,
		Subcategory:  casier.Subcategory,
		DocumentType: req.DocumentType,
		Format:       string(casier.Format),
		Status:       artifact.StatusPending,
		Options:      options,
		CreatedAt:    now,
	}
	if err := o.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("orchestrator: create artifact: %w", err)
	}
	o.emit(a.ID, a.DocumentType, artifact.StatusPending, "")

	if err := o.transition(ctx, a.ID, artifact.EventStart, nil); err != nil {
		return nil, err
	}

	return o.generate(ctx, a.ID, req, options)
}

// generate submits the job and records its outcome. The outcome is written
// even when ctx has been cancelled, so the artifact never stays generating.
func (o *Orchestrator) generate(ctx context.Context, id string, req Request, options map[string]any) (*artifact.Artifact, error) {
	genCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	doc, genErr := o.generator.Generate(genCtx, genclient.Job{
		ClientID:     req.ClientID,
		EvaluationID: req.EvaluationID,
		DocumentType: req.DocumentType,
		Options:      options,
	})

	recordCtx := context.WithoutCancel(ctx)

	if genErr != nil {
		reason := failureReason(genErr)
		o.logger.Warn("generation failed",
			zap.String("artifact", id),
			zap.String("documentType", req.DocumentType),
			zap.Error(genErr),
		)
		if err := o.transition(recordCtx, id, artifact.EventFail, func(a *artifact.Artifact) {
			a.FailureReason = reason
		}); err != nil {
			return nil, err
		}
		a, err := o.store.Get(recordCtx, id)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: reload artifact: %w", err)
		}
		return a, &GenerationError{ArtifactID: id, Message: reason, Err: genErr}
	}

	event := artifact.EventComplete
	if preview, _ := options["preview"].(bool); preview {
		event = artifact.EventSucceed
	}
	generatedAt := o.now()
	if err := o.transition(recordCtx, id, event, func(a *artifact.Artifact) {
		a.Path = doc.Path
		a.GeneratedAt = &generatedAt
	}); err != nil {
		return nil, err
	}

	a, err := o.store.Get(recordCtx, id)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: reload artifact: %w", err)
	}
	o.logger.Info("document generated",
		zap.String("artifact", id),
		zap.String("documentType", a.DocumentType),
		zap.String("status", string(a.Status)),
		zap.String("path", a.Path),
	)
	return a, nil
}

// Finalize moves a ready artifact to completed.
func (o *Orchestrator) Finalize(ctx context.Context, id string) (*artifact.Artifact, error) {
	if err := o.transition(ctx, id, artifact.EventFinalize, nil); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, id)
}

// Artifact returns the stored artifact with the given id.
func (o *Orchestrator) Artifact(ctx context.Context, id string) (*artifact.Artifact, error) {
	return o.store.Get(ctx, id)
}

// CheckPrerequisites reports the prerequisite state of documentType for a
// client and optional evaluation without dispatching anything.
func (o *Orchestrator) CheckPrerequisites(ctx context.Context, clientID int64, evaluationID *int64, documentType string) (depgraph.Result, error) {
	g := o.graph.Graph()
	if g == nil {
		return depgraph.Result{}, errors.New("orchestrator: no dependency graph loaded")
	}
	available, err := o.available(ctx, clientID, evaluationID)
	if err != nil {
		return depgraph.Result{}, err
	}
	return g.CheckPrerequisites(documentType, available), nil
}

// ClientStatus reports the state of every document type for a client and
// optional evaluation.
func (o *Orchestrator) ClientStatus(ctx context.Context, clientID int64, evaluationID *int64) (status.ClientStatus, error) {
	g := o.graph.Graph()
	if g == nil {
		return status.ClientStatus{}, errors.New("orchestrator: no dependency graph loaded")
	}
	return status.GetClientStatus(ctx, g, o.store, clientID, evaluationID)
}

// Progress returns the lifecycle event stream, or nil when no reporter is
// installed.
func (o *Orchestrator) Progress() <-chan ProgressEvent {
	if o.progress == nil {
		return nil
	}
	return o.progress.Subscribe()
}

func (o *Orchestrator) validateShape(ctx context.Context, req Request) (nomenclature.Client, error) {
	switch {
	case req.ClientID <= 0:
		return nomenclature.Client{}, &ValidationError{Field: "clientId", Reason: "is required"}
	case req.Category == "":
		return nomenclature.Client{}, &ValidationError{Field: "category", Reason: "is required"}
	case req.Subcategory == "":
		return nomenclature.Client{}, &ValidationError{Field: "subcategory", Reason: "is required"}
	case req.DocumentType == "":
		return nomenclature.Client{}, &ValidationError{Field: "documentType", Reason: "is required"}
	}

	client, err := o.directory.Client(ctx, req.ClientID)
	if errors.Is(err, ErrUnknownClient) {
		return nomenclature.Client{}, &ValidationError{Field: "clientId", Reason: fmt.Sprintf("client %d does not exist", req.ClientID)}
	}
	if err != nil {
		return nomenclature.Client{}, fmt.Errorf("orchestrator: lookup client: %w", err)
	}
	return client, nil
}

func (o *Orchestrator) validateDocumentType(ctx context.Context, g *depgraph.Graph, req Request) error {
	node, ok := g.Node(req.DocumentType)
	if !ok {
		return &ValidationError{Field: "documentType", Reason: fmt.Sprintf("unknown document type %q", req.DocumentType)}
	}
	if !node.IsAvailable {
		return &ValidationError{Field: "documentType", Reason: fmt.Sprintf("document type %q is not available", req.DocumentType)}
	}

	if node.RequiresEvaluation && req.EvaluationID == nil {
		return &MissingEvaluationError{DocumentType: req.DocumentType}
	}
	if req.EvaluationID != nil {
		ok, err := o.directory.EvaluationExists(ctx, req.ClientID, *req.EvaluationID)
		if err != nil {
			return fmt.Errorf("orchestrator: lookup evaluation: %w", err)
		}
		if !ok {
			return &ValidationError{Field: "evaluationId",
				Reason: fmt.Sprintf("evaluation %d does not exist for client %d", *req.EvaluationID, req.ClientID)}
		}
	}

	if node.RequiresQuestionnaire && req.QuestionnaireID == nil {
		return &ValidationError{Field: "questionnaireId",
			Reason: fmt.Sprintf("document type %q requires a questionnaire", req.DocumentType)}
	}
	return nil
}

func (o *Orchestrator) checkPrerequisites(ctx context.Context, g *depgraph.Graph, req Request) error {
	available, err := o.available(ctx, req.ClientID, req.EvaluationID)
	if err != nil {
		return err
	}
	res := g.CheckPrerequisites(req.DocumentType, available)
	if len(res.Advisory) > 0 {
		o.logger.Info("recommended documents not generated yet",
			zap.String("documentType", req.DocumentType),
			zap.Strings("advisory", res.Advisory),
		)
	}
	if !res.Satisfied {
		return &UnmetDependencyError{DocumentType: req.DocumentType, Missing: res.MissingRequired}
	}
	return nil
}

// available collects document types already generated for the client,
// either under the same evaluation or at client level.
func (o *Orchestrator) available(ctx context.Context, clientID int64, evaluationID *int64) (map[string]bool, error) {
	list, err := o.store.List(ctx, artifact.Filter{
		ClientID: clientID,
		Statuses: []artifact.Status{artifact.StatusReady, artifact.StatusCompleted},
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list artifacts: %w", err)
	}
	out := make(map[string]bool, len(list))
	for _, a := range list {
		if a.InScope(evaluationID) {
			out[a.DocumentType] = true
		}
	}
	return out, nil
}

func (o *Orchestrator) filename(c registry.Casier, client nomenclature.Client, at time.Time) string {
	var base string
	if c.FilenamePattern != "" {
		base = nomenclature.Render(c.FilenamePattern, nomenclature.Fields{
			Category:     c.Category,
			Subcategory:  c.Subcategory,
			DocumentType: c.DocumentType,
			Client:       client,
		}, at)
	} else {
		base = nomenclature.Generate(c.Category, c.Subcategory, c.DocumentType, client, at)
	}
	return nomenclature.WithExtension(base, string(c.Format))
}

// transition applies event (and mutate, when non-nil) to the stored artifact
// and emits a progress event on success.
func (o *Orchestrator) transition(ctx context.Context, id, event string, mutate func(*artifact.Artifact)) error {
	var docType, reason string
	var st artifact.Status
	err := o.store.Update(ctx, id, func(a *artifact.Artifact) error {
		if err := artifact.Transition(ctx, a, event); err != nil {
			return err
		}
		if mutate != nil {
			mutate(a)
		}
		docType, st, reason = a.DocumentType, a.Status, a.FailureReason
		return nil
	})
	if err != nil {
		return fmt.Errorf("orchestrator: %s artifact %s: %w", event, id, err)
	}
	o.emit(id, docType, st, reason)
	return nil
}

func (o *Orchestrator) emit(id, docType string, st artifact.Status, msg string) {
	if o.progress == nil {
		return
	}
	o.progress.Emit(ProgressEvent{
		ArtifactID:   id,
		DocumentType: docType,
		Status:       st,
		Message:      msg,
		At:           o.now(),
	})
}

// buildOptions layers caller options over the defaults and attaches the
// casier content references.
func buildOptions(caller map[string]any, c registry.Casier, filename string) map[string]any {
	opts := DefaultOptions()
	maps.Copy(opts, caller)
	info := map[string]any{"customFilename": filename}
	if c.Content.PromptDocID != nil {
		info["promptDocId"] = *c.Content.PromptDocID
	}
	if c.Content.SummaryDocID != nil {
		info["summaryDocId"] = *c.Content.SummaryDocID
	}
	opts["casierInfo"] = info
	return opts
}

func displayName(c registry.Casier, req Request) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return req.DocumentType
}

func dispatchKey(req Request) string {
	eval := "-"
	if req.EvaluationID != nil {
		eval = fmt.Sprint(*req.EvaluationID)
	}
	return fmt.Sprintf("dispatch:%d:%s:%s", req.ClientID, eval, req.DocumentType)
}

func failureReason(err error) string {
	var se *genclient.ServiceError
	switch {
	case errors.As(err, &se):
		return se.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	case errors.Is(err, context.Canceled):
		return "generation cancelled"
	default:
		return err.Error()
	}
}
