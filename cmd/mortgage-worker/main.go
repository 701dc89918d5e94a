// cmd/mortgage-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/aws"
	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/config"
	"mortgage-workflow/internal/common/database"
	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/observability"
	"mortgage-workflow/internal/lifecycle"
	"mortgage-workflow/internal/mortgage"
	"mortgage-workflow/internal/schedule"
	"mortgage-workflow/pkg/registry"

	// Lifecycle
	at "mortgage-workflow/internal/workers/mortgage/attempt-transition"
	ca "mortgage-workflow/internal/workers/mortgage/create-application"
	vai "mortgage-workflow/internal/workers/mortgage/verify-application-integrity"

	// Document reviews
	arr "mortgage-workflow/internal/workers/mortgage/add-review-requirement"
	sdr "mortgage-workflow/internal/workers/mortgage/submit-document-review"
	wdr "mortgage-workflow/internal/workers/mortgage/waive-document-review"

	// Underwriting
	eu "mortgage-workflow/internal/workers/mortgage/evaluate-underwriting"
	mur "mortgage-workflow/internal/workers/mortgage/manual-underwriting-review"
	sc "mortgage-workflow/internal/workers/mortgage/satisfy-condition"

	// Schedules and payments
	gps "mortgage-workflow/internal/workers/mortgage/generate-payment-schedule"
	moi "mortgage-workflow/internal/workers/mortgage/mark-overdue-installments"
	rp "mortgage-workflow/internal/workers/mortgage/record-payment"
	wi "mortgage-workflow/internal/workers/mortgage/waive-installment"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting mortgage worker...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("lock", cfg.Lock.Backend),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Storage ---
	backend := mortgage.NewMemoryBackend()
	var pg *database.PostgresClient
	if cfg.Storage.Backend == config.BackendPostgres {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		if cfg.Database.Postgres.AutoMigrate {
			applied, err := pg.Migrate(ctx)
			if err != nil {
				zapLog.Fatal("schema migration failed", zap.Error(err))
			}
			zapLog.Info("schema migrations applied", zap.Strings("migrations", applied))
		}
		backend = mortgage.NewPostgresBackend(pg.DB)
	}

	// --- Application lock ---
	lockOpts := lock.Options{
		TTL:        config.GetDuration(cfg.Lock.TTL),
		WaitFor:    config.GetDuration(cfg.Lock.WaitFor),
		RetryEvery: config.GetDuration(cfg.Lock.RetryEvery),
		KeyPrefix:  cfg.Lock.KeyPrefix,
	}
	var locker lock.Locker = lock.NewLocalLocker(lockOpts)
	if cfg.Lock.Backend == config.LockRedis {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		locker = lock.NewRedisLocker(redis.Client, lockOpts)
		zapLog.Info("Redis connected successfully")
	}

	// --- Underwriting rules ---
	rules, err := registry.LoadRegistry(cfg.Underwriting.RegistryPath)
	if err != nil {
		zapLog.Fatal("rule registry load failed", zap.String("path", cfg.Underwriting.RegistryPath), zap.Error(err))
	}
	if cfg.Underwriting.DefaultVersion != "" {
		if err := rules.SetDefault(cfg.Underwriting.DefaultVersion); err != nil {
			zapLog.Fatal("default rule set missing", zap.Error(err))
		}
	}
	zapLog.Info("rule registry loaded", zap.Strings("versions", rules.Versions()), zap.String("default", rules.DefaultVersion()))

	// --- Transition notifiers ---
	var notifiers []lifecycle.Notifier
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.EnsureAuditIndex(ctx, cfg.Database.Elasticsearch.AuditIndex)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		notifiers = append(notifiers, audit.NewIndexer(es.Client, cfg.Database.Elasticsearch.AuditIndex, log))
		zapLog.Info("Elasticsearch connected successfully")
	}
	if cfg.Lifecycle.PublishEvents && cfg.Notifications.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifiers = append(notifiers, lifecycle.NewSNSNotifier(sns, cfg.Notifications.SNS.TopicARN, log))
	}

	components := mortgage.Assemble(backend, locker, mortgage.Settings{
		Rules: rules,
		LedgerPolicy: schedule.Policy{
			StrictOverpayment: cfg.Ledger.StrictOverpayment,
			LateFeeFlat:       config.MustDecimal(cfg.Ledger.LateFeeFlat),
			LateFeePercent:    config.MustDecimal(cfg.Ledger.LateFeePercent),
			InstallmentFee:    config.MustDecimal(cfg.Schedule.InstallmentFee),
		},
		AuditorInterval: config.GetDuration(cfg.Lifecycle.AuditorInterval),
		AuditorPageSize: cfg.Lifecycle.AuditorPageSize,
		Notifiers:       notifiers,
	}, log)
	svc := mortgage.NewService(components, log, mortgage.WithObservability(obs))

	go components.Auditor.Run(ctx)
	go sweepOverdue(ctx, svc, config.GetDuration(cfg.Ledger.OverdueSweep), zapLog)

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Workers ---
	var workers []worker.JobWorker
	register := func(taskType string, handler worker.JobHandler) {
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(ca.TaskType, ca.NewHandler(ca.LoadConfig(cfg), svc, log).Handle)
	register(at.TaskType, at.NewHandler(at.LoadConfig(cfg), svc, log).Handle)
	register(vai.TaskType, vai.NewHandler(vai.LoadConfig(cfg), svc, log).Handle)

	register(arr.TaskType, arr.NewHandler(arr.LoadConfig(cfg), svc, log).Handle)
	register(sdr.TaskType, sdr.NewHandler(sdr.LoadConfig(cfg), svc, log).Handle)
	register(wdr.TaskType, wdr.NewHandler(wdr.LoadConfig(cfg), svc, log).Handle)

	register(eu.TaskType, eu.NewHandler(eu.LoadConfig(cfg), svc, log).Handle)
	register(mur.TaskType, mur.NewHandler(mur.LoadConfig(cfg), svc, log).Handle)
	register(sc.TaskType, sc.NewHandler(sc.LoadConfig(cfg), svc, log).Handle)

	register(gps.TaskType, gps.NewHandler(gps.LoadConfig(cfg), svc, log).Handle)
	register(rp.TaskType, rp.NewHandler(rp.LoadConfig(cfg), svc, log).Handle)
	register(wi.TaskType, wi.NewHandler(wi.LoadConfig(cfg), svc, log).Handle)
	register(moi.TaskType, moi.NewHandler(moi.LoadConfig(cfg), svc, log).Handle)

	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context(), zeebe, pg); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Mortgage worker stopped")
}

// sweepOverdue marks past-due installments on every tick. A zero interval disables it.
func sweepOverdue(ctx context.Context, svc *mortgage.Service, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := svc.MarkOverdue(ctx, now.UTC())
			if err != nil && ctx.Err() == nil {
				log.Warn("overdue sweep failed", zap.Error(err), zap.Int("updated", n))
			}
		}
	}
}

func ready(ctx context.Context, zeebe *camunda.Client, pg *database.PostgresClient) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := zeebe.HealthCheck(ctx); err != nil {
		return fmt.Errorf("zeebe: %w", err)
	}
	if pg != nil {
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
