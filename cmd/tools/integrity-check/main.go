// cmd/tools/integrity-check/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/config"
	"mortgage-workflow/internal/common/database"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/mortgage"
)

// Exit codes: 0 clean, 1 failure to run, 2 violations found.
func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to configs/config.yaml lookup)")
	applicationID := flag.String("application", "", "Verify a single application instead of sweeping all")
	pageSize := flag.Int("page-size", 0, "Applications per page (overrides lifecycle.auditor_page_size)")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall deadline")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		fmt.Fprintln(os.Stderr, "Error: integrity-check needs storage.backend=postgres")
		os.Exit(1)
	}
	if *pageSize > 0 {
		cfg.Lifecycle.AuditorPageSize = *pageSize
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}

	// Verification only reads, so no shared lock is needed.
	components := mortgage.Assemble(mortgage.NewPostgresBackend(pg.DB), lock.NewLocalLocker(lock.Options{}), mortgage.Settings{
		AuditorPageSize: cfg.Lifecycle.AuditorPageSize,
	}, log)
	svc := mortgage.NewService(components, log)

	report, err := run(ctx, svc, *applicationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	if len(report.Violations) > 0 {
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, svc *mortgage.Service, applicationID string) (*audit.Report, error) {
	if applicationID == "" {
		return svc.SweepIntegrity(ctx)
	}

	report := &audit.Report{Checked: 1}
	err := svc.VerifyIntegrity(ctx, applicationID)
	switch {
	case err == nil:
	case errors.CodeOf(err) == errors.ErrCodeIntegrityViolation:
		report.Violations = append(report.Violations, audit.Violation{
			ApplicationID: applicationID,
			Details:       err.Error(),
		})
	default:
		return nil, err
	}
	return report, nil
}
