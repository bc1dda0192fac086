package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/casier/internal/nomenclature"
)

const docPath = "/documents/amoa/preliminary-study/etude-faisabilite/42_20261019.docx"

var acme = nomenclature.Client{ID: 42, Name: "Acme Industrie"}

// fakeSleep records requested waits without sleeping.
type fakeSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (f *fakeSleep) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeSleep) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

func testPolicy(fs *fakeSleep) RetryPolicy {
	rp := DefaultRetryPolicy()
	rp.Sleep = fs.Sleep
	return rp
}

// docServer serves the three routes and counts hits per route.
type docServer struct {
	*httptest.Server
	integrityStatus int
	valid           bool
	downloadStatus  int
	disposition     string

	integrityHits atomic.Int32
	standardHits  atomic.Int32
	secureHits    atomic.Int32
}

func newDocServer(t *testing.T) *docServer {
	t.Helper()
	ds := &docServer{integrityStatus: http.StatusOK, valid: true, downloadStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc(DefaultIntegrityPath, func(w http.ResponseWriter, r *http.Request) {
		ds.integrityHits.Add(1)
		assert.Equal(t, docPath, r.URL.Query().Get("path"))
		assert.Equal(t, "true", r.URL.Query().Get("validateIntegrity"))
		w.WriteHeader(ds.integrityStatus)
		if ds.valid {
			_, _ = w.Write([]byte(`{"valid":true}`))
		} else {
			_, _ = w.Write([]byte(`{"valid":false}`))
		}
	})
	download := func(counter *atomic.Int32) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			counter.Add(1)
			assert.Equal(t, docPath, r.URL.Query().Get("path"))
			if ds.downloadStatus != http.StatusOK {
				w.WriteHeader(ds.downloadStatus)
				_, _ = w.Write([]byte(`{"message":"Document introuvable"}`))
				return
			}
			if ds.disposition != "" {
				w.Header().Set("Content-Disposition", ds.disposition)
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
			_, _ = w.Write([]byte("PK-docx-bytes"))
		}
	}
	mux.HandleFunc(DefaultStandardPath, download(&ds.standardHits))
	mux.HandleFunc(DefaultSecurePath, download(&ds.secureHits))
	ds.Server = httptest.NewServer(mux)
	t.Cleanup(ds.Close)
	return ds
}

func fixedClock() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

func TestDeliver_ValidUsesStandardRoute(t *testing.T) {
	ds := newDocServer(t)
	ds.disposition = `attachment; filename="Etude_Acme.docx"`
	fs := &fakeSleep{}

	res, err := New(DefaultRoutes(ds.URL), WithRetryPolicy(testPolicy(fs))).Deliver(context.Background(), docPath, acme)
	require.NoError(t, err)

	assert.Equal(t, []byte("PK-docx-bytes"), res.Data)
	assert.Equal(t, "Etude_Acme.docx", res.Filename)
	assert.False(t, res.Secure)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), ds.integrityHits.Load())
	assert.Equal(t, int32(1), ds.standardHits.Load())
	assert.Zero(t, ds.secureHits.Load())
	assert.Empty(t, fs.Waits())
}

func TestDeliver_InvalidUsesSecureRouteOnly(t *testing.T) {
	ds := newDocServer(t)
	ds.valid = false

	res, err := New(DefaultRoutes(ds.URL), WithRetryPolicy(testPolicy(&fakeSleep{}))).Deliver(context.Background(), docPath, acme)
	require.NoError(t, err)

	assert.True(t, res.Secure)
	assert.Equal(t, int32(1), ds.secureHits.Load())
	assert.Zero(t, ds.standardHits.Load())
}

func TestDeliver_IntegrityCheckFailureDegradesToSecure(t *testing.T) {
	ds := newDocServer(t)
	ds.integrityStatus = http.StatusInternalServerError

	res, err := New(DefaultRoutes(ds.URL), WithRetryPolicy(testPolicy(&fakeSleep{}))).Deliver(context.Background(), docPath, acme)
	require.NoError(t, err)

	assert.True(t, res.Secure)
	assert.Equal(t, int32(1), ds.secureHits.Load())
	assert.Zero(t, ds.standardHits.Load())
}

func TestDeliver_RejectedIsNotRetried(t *testing.T) {
	ds := newDocServer(t)
	ds.downloadStatus = http.StatusNotFound
	fs := &fakeSleep{}

	_, err := New(DefaultRoutes(ds.URL), WithRetryPolicy(testPolicy(fs))).Deliver(context.Background(), docPath, acme)

	var rej *DeliveryRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusNotFound, rej.StatusCode)
	assert.Equal(t, "Document introuvable", rej.Message)
	assert.Equal(t, int32(1), ds.standardHits.Load())
	assert.Empty(t, fs.Waits())
}

func TestDeliver_RejectedWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultIntegrityPath {
			_, _ = w.Write([]byte(`{"valid":true}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(DefaultRoutes(srv.URL), WithRetryPolicy(testPolicy(&fakeSleep{}))).Deliver(context.Background(), docPath, acme)

	var rej *DeliveryRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "download rejected: HTTP 403", rej.Error())
}

func TestDeliver_FallbackFilename(t *testing.T) {
	ds := newDocServer(t)

	res, err := New(DefaultRoutes(ds.URL),
		WithRetryPolicy(testPolicy(&fakeSleep{})),
		WithClock(fixedClock),
	).Deliver(context.Background(), docPath, acme)
	require.NoError(t, err)

	assert.Equal(t, "AMOA_preliminary-study_etude-faisabilite_42_20261019.docx", res.Filename)
}

func TestDeliver_ControlCharactersInHeaderUseFallbackFilename(t *testing.T) {
	ds := newDocServer(t)
	ds.disposition = `attachment; filename*=UTF-8''a%0Ab%00.docx`

	res, err := New(DefaultRoutes(ds.URL),
		WithRetryPolicy(testPolicy(&fakeSleep{})),
		WithClock(fixedClock),
	).Deliver(context.Background(), docPath, acme)
	require.NoError(t, err)

	assert.Equal(t, "AMOA_preliminary-study_etude-faisabilite_42_20261019.docx", res.Filename)
}

func TestDeliver_EmptyPath(t *testing.T) {
	_, err := New(DefaultRoutes("http://unused")).Deliver(context.Background(), " ", acme)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestDeliver_TransportErrorsExhaustAttempts(t *testing.T) {
	defer gock.Off()

	hc := &http.Client{}
	gock.InterceptClient(hc)
	defer gock.RestoreClient(hc)

	gock.New("http://docs.local").
		Get(DefaultIntegrityPath).
		MatchParam("validateIntegrity", "true").
		Reply(200).
		JSON(map[string]bool{"valid": true})
	gock.New("http://docs.local").
		Get(DefaultStandardPath).
		Times(3).
		ReplyError(errors.New("connection reset by peer"))

	fs := &fakeSleep{}
	_, err := New(DefaultRoutes("http://docs.local"),
		WithHTTPClient(hc),
		WithRetryPolicy(testPolicy(fs)),
	).Deliver(context.Background(), docPath, acme)

	var ex *DeliveryExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
	assert.Contains(t, ex.Err.Error(), "connection reset by peer")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fs.Waits())
	assert.True(t, gock.IsDone(), "exactly three download attempts")
}

func TestDeliver_RecoversAfterTransientError(t *testing.T) {
	defer gock.Off()

	hc := &http.Client{}
	gock.InterceptClient(hc)
	defer gock.RestoreClient(hc)

	gock.New("http://docs.local").
		Get(DefaultIntegrityPath).
		Reply(200).
		JSON(map[string]bool{"valid": false})
	gock.New("http://docs.local").
		Get(DefaultSecurePath).
		ReplyError(errors.New("EOF"))
	gock.New("http://docs.local").
		Get(DefaultSecurePath).
		Reply(200).
		SetHeader("Content-Disposition", `attachment; filename*=UTF-8''%C3%89tude%20Acme.pdf`).
		BodyString("%PDF-1.7")

	fs := &fakeSleep{}
	res, err := New(DefaultRoutes("http://docs.local"),
		WithHTTPClient(hc),
		WithRetryPolicy(testPolicy(fs)),
	).Deliver(context.Background(), docPath, acme)
	require.NoError(t, err)

	assert.True(t, res.Secure)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "Étude Acme.pdf", res.Filename)
	assert.Equal(t, []byte("%PDF-1.7"), res.Data)
	assert.Equal(t, []time.Duration{time.Second}, fs.Waits())
}
