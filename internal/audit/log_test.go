package audit

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func ok(app string, from, to models.State, event models.Event) models.TransitionRecord {
	return models.TransitionRecord{ApplicationID: app, FromState: from, ToState: to, Event: event, Success: true}
}

func failed(app string, state models.State, event models.Event) models.TransitionRecord {
	return models.TransitionRecord{
		ApplicationID: app, FromState: state, ToState: state, Event: event,
		ErrorCode: string(errors.ErrCodeGuardNotSatisfied),
	}
}

type fakeApps struct {
	apps map[string]*models.MortgageApplication
	ids  []string
}

func (f *fakeApps) Get(_ context.Context, id string) (*models.MortgageApplication, error) {
	app, exists := f.apps[id]
	if !exists {
		return nil, errors.NewNotFoundError("application", id)
	}
	return app, nil
}

func (f *fakeApps) ListIDs(_ context.Context, after string, limit int) ([]string, error) {
	var out []string
	for _, id := range f.ids {
		if id > after && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

// ==========================
// Fold / Verify
// ==========================

func TestFold(t *testing.T) {
	records := []models.TransitionRecord{
		ok("app-1", models.StateProvisionalOfferAccepted, models.StatePreApproval, models.EventStartPreApproval),
		failed("app-1", models.StatePreApproval, models.EventApproveApplication),
		ok("app-1", models.StatePreApproval, models.StateApplicationApproval, models.EventApproveApplication),
	}

	state, err := Fold("app-1", records)
	require.NoError(t, err)
	assert.Equal(t, models.StateApplicationApproval, state)

	state, err = Fold("app-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InitialState, state)
}

func TestFold_BrokenChain(t *testing.T) {
	records := []models.TransitionRecord{
		ok("app-1", models.StateProvisionalOfferAccepted, models.StatePreApproval, models.EventStartPreApproval),
		ok("app-1", models.StateEquityPaid, models.StateDocumentSentToBank, models.EventSendDocumentsToBank),
	}
	_, err := Fold("app-1", records)
	assert.True(t, stderrors.Is(err, errors.ErrIntegrityViolation))
}

func TestVerify(t *testing.T) {
	records := []models.TransitionRecord{
		ok("app-1", models.StateProvisionalOfferAccepted, models.StatePreApproval, models.EventStartPreApproval),
	}

	require.NoError(t, Verify(&models.MortgageApplication{ID: "app-1", CurrentState: models.StatePreApproval}, records))

	err := Verify(&models.MortgageApplication{ID: "app-1", CurrentState: models.StateEquityPaid}, records)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIntegrityViolation))
	std := errors.AsStandard(err)
	assert.Equal(t, "EQUITY_PAID", std.Metadata["storedState"])
	assert.Equal(t, "PRE_APPROVAL", std.Metadata["replayedState"])
}

// ==========================
// MemoryLog
// ==========================

func TestMemoryLog_AssignsSequence(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := failed("app-1", models.InitialState, models.EventDisburse)
		require.NoError(t, log.Append(ctx, &rec))
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.NotEmpty(t, rec.ID)
	}
	other := failed("app-2", models.InitialState, models.EventDisburse)
	require.NoError(t, log.Append(ctx, &other))
	assert.Equal(t, int64(1), other.Seq)

	records, err := log.Replay(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(3), records[2].Seq)
}

// ==========================
// Auditor
// ==========================

func TestAuditor_Sweep(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	apps := &fakeApps{apps: map[string]*models.MortgageApplication{}}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("app-%d", i)
		apps.ids = append(apps.ids, id)
		apps.apps[id] = &models.MortgageApplication{ID: id, CurrentState: models.StatePreApproval}
		rec := ok(id, models.StateProvisionalOfferAccepted, models.StatePreApproval, models.EventStartPreApproval)
		require.NoError(t, log.Append(ctx, &rec))
	}
	apps.apps["app-4"].CurrentState = models.StateClosed

	auditor := NewAuditor(log, apps, time.Minute, 2, logger.NewTestLogger(t))
	report, err := auditor.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Checked)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "app-4", report.Violations[0].ApplicationID)
	assert.Equal(t, "CLOSED", report.Violations[0].Stored)
	assert.Equal(t, "PRE_APPROVAL", report.Violations[0].Replayed)

	assert.Equal(t, models.StateClosed, apps.apps["app-4"].CurrentState, "auditor must not repair")
}

func TestAuditor_VerifyUnknownApplication(t *testing.T) {
	auditor := NewAuditor(NewMemoryLog(), &fakeApps{apps: map[string]*models.MortgageApplication{}}, 0, 0, logger.NewTestLogger(t))
	err := auditor.VerifyApplication(context.Background(), "nope")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestAuditor_RunStopsOnCancel(t *testing.T) {
	auditor := NewAuditor(NewMemoryLog(), &fakeApps{apps: map[string]*models.MortgageApplication{}}, 10*time.Millisecond, 10, logger.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		auditor.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auditor did not stop")
	}
}

// ==========================
// Indexer
// ==========================

func newTestES(t *testing.T, status int) (*elasticsearch.Client, *[]string) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path+" "+string(body))
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, &paths
}

func TestIndexer_Index(t *testing.T) {
	client, paths := newTestES(t, http.StatusCreated)
	ix := NewIndexer(client, "mortgage-transitions", logger.NewTestLogger(t))

	rec := ok("app-1", models.StateProvisionalOfferAccepted, models.StatePreApproval, models.EventStartPreApproval)
	rec.ID = "rec-1"
	require.NoError(t, ix.Index(context.Background(), rec))

	require.Len(t, *paths, 1)
	assert.True(t, strings.HasPrefix((*paths)[0], "PUT /mortgage-transitions/_doc/rec-1"))
	assert.Contains(t, (*paths)[0], `"event":"START_PRE_APPROVAL"`)
}

func TestIndexer_PublishSwallowsErrors(t *testing.T) {
	client, _ := newTestES(t, http.StatusInternalServerError)
	ix := NewIndexer(client, "mortgage-transitions", logger.NewTestLogger(t))

	rec := ok("app-1", models.StateProvisionalOfferAccepted, models.StatePreApproval, models.EventStartPreApproval)
	rec.ID = "rec-1"
	assert.Error(t, ix.Index(context.Background(), rec))
	assert.NotPanics(t, func() { ix.Publish(context.Background(), rec) })
}
