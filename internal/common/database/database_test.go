package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"mortgage-workflow/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Migrations
// ==========================

func TestMigrations_EmbeddedInOrder(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	assert.Equal(t, "0001_applications.sql", migrations[0].Name)
	assert.Contains(t, migrations[0].SQL, "UNIQUE (application_id, seq)")
	assert.Contains(t, migrations[3].SQL, "UNIQUE (installment_id, reference)")
}

// Optional model fields (pointers, omitempty) must map to nullable columns.
func TestMigrations_ColumnNullability(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)

	tests := []struct {
		table    string
		column   string
		nullable bool
	}{
		{"installments", "grace_period_end_date", true},
		{"installments", "paid_at", true},
		{"installments", "due_date", false},
		{"underwriting_decisions", "supersedes_id", true},
		{"transition_records", "error_code", true},
		{"transition_records", "occurred_at", false},
	}

	for _, tt := range tests {
		t.Run(tt.table+"."+tt.column, func(t *testing.T) {
			def := columnDefinition(t, migrations, tt.table, tt.column)
			assert.Equal(t, tt.nullable, !strings.Contains(def, "NOT NULL"), def)
		})
	}
}

func columnDefinition(t *testing.T, migrations []Migration, table, column string) string {
	t.Helper()
	header := "CREATE TABLE IF NOT EXISTS " + table + " ("
	for _, m := range migrations {
		start := strings.Index(m.SQL, header)
		if start < 0 {
			continue
		}
		body := m.SQL[start+len(header):]
		if end := strings.Index(body, "\n);"); end >= 0 {
			body = body[:end]
		}
		for _, line := range strings.Split(body, "\n") {
			fields := strings.Fields(line)
			if len(fields) > 0 && fields[0] == column {
				return strings.TrimSpace(line)
			}
		}
	}
	t.Fatalf("column %s.%s not found in migrations", table, column)
	return ""
}

func TestMigrate_AppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_applications.sql").AddRow("0002_document_reviews.sql"))

	for _, m := range []struct{ name, table string }{
		{"0003_underwriting.sql", "underwriting_decisions"},
		{"0004_payment_schedules.sql", "payment_schedules"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + m.table).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(m.name).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"0003_underwriting.sql", "0004_payment_schedules.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS mortgage_applications").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	applied, err := Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_applications.sql")
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Elasticsearch
// ==========================

func newElasticServer(t *testing.T, exists bool) (*ElasticsearchClient, *[]string) {
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && !exists:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut:
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, &calls
}

func TestEnsureAuditIndex_CreatesMissingIndex(t *testing.T) {
	client, calls := newElasticServer(t, false)

	require.NoError(t, client.EnsureAuditIndex(context.Background(), "mortgage-transitions"))
	assert.Equal(t, []string{"HEAD /mortgage-transitions", "PUT /mortgage-transitions"}, *calls)
}

func TestEnsureAuditIndex_ExistingIndex(t *testing.T) {
	client, calls := newElasticServer(t, true)

	require.NoError(t, client.EnsureAuditIndex(context.Background(), "mortgage-transitions"))
	require.Len(t, *calls, 1)
	assert.True(t, strings.HasPrefix((*calls)[0], "HEAD"))
}
