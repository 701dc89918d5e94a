package mortgage

import (
	"database/sql"
	"time"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/lifecycle"
	"mortgage-workflow/internal/review"
	"mortgage-workflow/internal/schedule"
	"mortgage-workflow/internal/underwriting"
)

// Backend is one persistence choice for every store.
type Backend struct {
	Applications lifecycle.Repository
	Log          audit.Log
	Reviews      review.Store
	Underwriting underwriting.Store
	Schedules    schedule.Store
}

// NewMemoryBackend keeps everything in process. Applications and the log share one mutex so
// a commit stays atomic.
func NewMemoryBackend() Backend {
	log := audit.NewMemoryLog()
	return Backend{
		Applications: lifecycle.NewMemoryRepository(log),
		Log:          log,
		Reviews:      review.NewMemoryStore(),
		Underwriting: underwriting.NewMemoryStore(),
		Schedules:    schedule.NewMemoryStore(),
	}
}

func NewPostgresBackend(db *sql.DB) Backend {
	return Backend{
		Applications: lifecycle.NewPostgresRepository(db),
		Log:          audit.NewPostgresLog(db),
		Reviews:      review.NewPostgresStore(db),
		Underwriting: underwriting.NewPostgresStore(db),
		Schedules:    schedule.NewPostgresStore(db),
	}
}

// Settings carries the non-storage dependencies.
type Settings struct {
	Rules           underwriting.RuleSource
	LedgerPolicy    schedule.Policy
	AuditorInterval time.Duration
	AuditorPageSize int
	Notifiers       []lifecycle.Notifier
}

// Assemble builds every component over b. The same locker serializes transitions and payments
// for an application.
func Assemble(b Backend, locker lock.Locker, st Settings, log logger.Logger) Components {
	reviews := review.NewOrchestrator(b.Reviews, log)
	uw := underwriting.NewService(b.Underwriting, st.Rules, log)
	ledger := schedule.NewLedger(b.Schedules, locker, st.LedgerPolicy, log)

	opts := make([]lifecycle.Option, 0, len(st.Notifiers))
	for _, n := range st.Notifiers {
		opts = append(opts, lifecycle.WithNotifier(n))
	}
	engine := lifecycle.NewEngine(b.Applications, b.Log, lifecycle.NewMaterializer(reviews, uw, ledger), locker, log, opts...)

	return Components{
		Engine:       engine,
		Reviews:      reviews,
		Underwriting: uw,
		Ledger:       ledger,
		Auditor:      audit.NewAuditor(b.Log, b.Applications, st.AuditorInterval, st.AuditorPageSize, log),
	}
}
