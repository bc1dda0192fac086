package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArtifact(id string, client int64, docType string, status Status) Artifact {
	return Artifact{
		ID:           id,
		ClientID:     client,
		DocumentType: docType,
		Status:       status,
		Options:      map[string]any{"language": "fr"},
		CreatedAt:    time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func TestTransition_HappyPaths(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		events []string
		want   Status
	}{
		{"preview then finalize", []string{EventStart, EventSucceed, EventFinalize}, StatusCompleted},
		{"direct completion", []string{EventStart, EventComplete}, StatusCompleted},
		{"ready is soft-terminal", []string{EventStart, EventSucceed}, StatusReady},
		{"failure", []string{EventStart, EventFail}, StatusError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newArtifact("a", 1, "x", StatusPending)
			for _, ev := range tc.events {
				require.NoError(t, Transition(ctx, &a, ev))
			}
			assert.Equal(t, tc.want, a.Status)
		})
	}
}

func TestTransition_Rejected(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		from  Status
		event string
	}{
		{StatusPending, EventSucceed},
		{StatusPending, EventFinalize},
		{StatusReady, EventFail},
		{StatusCompleted, EventStart},
		{StatusCompleted, EventFinalize},
		{StatusError, EventStart},
		{StatusGenerating, EventStart},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s_%s", tc.from, tc.event), func(t *testing.T) {
			a := newArtifact("a", 1, "x", tc.from)
			err := Transition(ctx, &a, tc.event)

			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tc.from, te.From)
			assert.Equal(t, tc.from, a.Status, "status must not change on a rejected event")
		})
	}
}

func TestMachine_Fire(t *testing.T) {
	m := NewMachine(StatusPending)
	require.NoError(t, m.Fire(context.Background(), EventStart))
	require.NoError(t, m.Fire(context.Background(), EventComplete))
	assert.Equal(t, StatusCompleted, m.Current())

	assert.Error(t, m.Fire(context.Background(), EventFinalize))
	assert.Equal(t, StatusCompleted, m.Current())
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusReady.Terminal())

	assert.True(t, StatusReady.Available())
	assert.True(t, StatusCompleted.Available())
	assert.False(t, StatusGenerating.Available())
	assert.False(t, StatusError.Available())
}

func TestMemStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	eval := int64(7)
	a := newArtifact("a1", 42, "etude-faisabilite", StatusPending)
	a.EvaluationID = &eval
	require.NoError(t, s.Create(ctx, a))

	err := s.Create(ctx, a)
	assert.Error(t, err, "duplicate id")

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ClientID)
	require.NotNil(t, got.EvaluationID)
	assert.Equal(t, int64(7), *got.EvaluationID)

	// Mutating the copy leaves the store untouched.
	*got.EvaluationID = 99
	got.Options["language"] = "en"
	again, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), *again.EvaluationID)
	assert.Equal(t, "fr", again.Options["language"])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_NestedOptionsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	a := newArtifact("a1", 42, "note-cadrage", StatusPending)
	a.Options["casierInfo"] = map[string]any{"customFilename": "orig.docx"}
	a.Options["sections"] = []any{map[string]any{"title": "Intro"}}
	require.NoError(t, s.Create(ctx, a))

	// The caller's map is not shared with the store either.
	a.Options["casierInfo"].(map[string]any)["customFilename"] = "caller.docx"

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	got.Options["casierInfo"].(map[string]any)["customFilename"] = "mutated"
	got.Options["sections"].([]any)[0].(map[string]any)["title"] = "Changed"

	again, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "orig.docx", again.Options["casierInfo"].(map[string]any)["customFilename"])
	assert.Equal(t, "Intro", again.Options["sections"].([]any)[0].(map[string]any)["title"])

	list, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	list[0].Options["casierInfo"].(map[string]any)["customFilename"] = "listed"
	again, err = s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "orig.docx", again.Options["casierInfo"].(map[string]any)["customFilename"])
}

func TestMemStore_UpdateRollsBackNestedOptions(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	a := newArtifact("a1", 42, "note-cadrage", StatusPending)
	a.Options["casierInfo"] = map[string]any{"customFilename": "orig.docx"}
	require.NoError(t, s.Create(ctx, a))

	err := s.Update(ctx, "a1", func(a *Artifact) error {
		a.Options["casierInfo"].(map[string]any)["customFilename"] = "partial.docx"
		return errors.New("boom")
	})
	require.Error(t, err)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "orig.docx", got.Options["casierInfo"].(map[string]any)["customFilename"])
}

func TestMemStore_CreateRequiresID(t *testing.T) {
	err := NewMemStore().Create(context.Background(), Artifact{})
	assert.Error(t, err)
}

func TestMemStore_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Create(ctx, newArtifact("a1", 1, "x", StatusPending)))

	err := s.Update(ctx, "a1", func(a *Artifact) error {
		a.Path = "/tmp/partial"
		return Transition(ctx, a, EventFinalize)
	})
	var te *TransitionError
	require.ErrorAs(t, err, &te)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, got.Path)
	assert.Equal(t, StatusPending, got.Status)

	require.NoError(t, s.Update(ctx, "a1", func(a *Artifact) error {
		return Transition(ctx, a, EventStart)
	}))
	got, err = s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, StatusGenerating, got.Status)

	err = s.Update(ctx, "missing", func(*Artifact) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemStore_ListFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Create(ctx, newArtifact("a1", 1, "note-cadrage", StatusCompleted)))
	require.NoError(t, s.Create(ctx, newArtifact("a2", 1, "etude-faisabilite", StatusError)))
	require.NoError(t, s.Create(ctx, newArtifact("a3", 2, "note-cadrage", StatusReady)))
	require.NoError(t, s.Create(ctx, newArtifact("a4", 1, "benchmark", StatusReady)))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a1", all[0].ID)
	assert.Equal(t, "a4", all[3].ID)

	avail, err := s.List(ctx, Filter{ClientID: 1, Statuses: []Status{StatusReady, StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, avail, 2)
	assert.Equal(t, "a1", avail[0].ID)
	assert.Equal(t, "a4", avail[1].ID)

	byType, err := s.List(ctx, Filter{DocumentType: "note-cadrage"})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	none, err := s.List(ctx, Filter{ClientID: 3})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Create(ctx, newArtifact(fmt.Sprintf("a%d", i), 1, "x", StatusPending)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = s.Update(ctx, id, func(a *Artifact) error { return Transition(ctx, a, EventStart) })
			_ = s.Update(ctx, id, func(a *Artifact) error { return Transition(ctx, a, EventComplete) })
		}(fmt.Sprintf("a%d", i))
	}
	wg.Wait()

	done, err := s.List(ctx, Filter{Statuses: []Status{StatusCompleted}})
	require.NoError(t, err)
	assert.Len(t, done, 20)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
	assert.Len(t, NewID(), 36)
}

func TestArtifact_InScope(t *testing.T) {
	seven, eight := int64(7), int64(8)
	tests := []struct {
		name     string
		artifact *int64
		request  *int64
		want     bool
	}{
		{"client level, no scope", nil, nil, true},
		{"client level, evaluation scope", nil, &seven, true},
		{"same evaluation", &seven, &seven, true},
		{"evaluation artifact, no scope", &seven, nil, false},
		{"other evaluation", &seven, &eight, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &Artifact{EvaluationID: tc.artifact}
			assert.Equal(t, tc.want, a.InScope(tc.request))
		})
	}
}
