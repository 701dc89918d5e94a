package audit

import (
	"context"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/models"
)

// ApplicationSource reads the denormalized application state being verified.
type ApplicationSource interface {
	Get(ctx context.Context, applicationID string) (*models.MortgageApplication, error)
	// ListIDs pages through application IDs in ascending order, starting after afterID.
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// Violation is one application whose stored state disagrees with its log.
type Violation struct {
	ApplicationID string `json:"applicationId"`
	Stored        string `json:"stored"`
	Replayed      string `json:"replayed"`
	Details       string `json:"details"`
}

type Report struct {
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations,omitempty"`
}

// Auditor replays every application's log and reports divergence. It never repairs.
type Auditor struct {
	log      Log
	apps     ApplicationSource
	logger   logger.Logger
	interval time.Duration
	pageSize int
}

func NewAuditor(log Log, apps ApplicationSource, interval time.Duration, pageSize int, lg logger.Logger) *Auditor {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Auditor{
		log:      log,
		apps:     apps,
		logger:   lg.WithFields(map[string]interface{}{"component": "integrity-auditor"}),
		interval: interval,
		pageSize: pageSize,
	}
}

// VerifyApplication returns an IntegrityViolation error when replay and stored state differ.
func (a *Auditor) VerifyApplication(ctx context.Context, applicationID string) error {
	app, err := a.apps.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	records, err := a.log.Replay(ctx, applicationID)
	if err != nil {
		return err
	}
	if err := Verify(app, records); err != nil {
		metrics.IntegrityViolationsTotal.Inc()
		a.logger.Error("integrity violation", map[string]interface{}{
			"applicationId": applicationID,
			"storedState":   app.CurrentState,
			"records":       len(records),
			"error":         err.Error(),
		})
		return err
	}
	return nil
}

// Sweep verifies every application once. Storage failures abort the sweep; violations do not.
func (a *Auditor) Sweep(ctx context.Context) (*Report, error) {
	report := &Report{}
	after := ""
	for {
		ids, err := a.apps.ListIDs(ctx, after, a.pageSize)
		if err != nil {
			return report, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Checked++
			err := a.VerifyApplication(ctx, id)
			if err == nil {
				continue
			}
			std := errors.AsStandard(err)
			if std == nil || std.Code != errors.ErrCodeIntegrityViolation {
				return report, err
			}
			v := Violation{ApplicationID: id, Details: std.Details}
			if stored, ok := std.Metadata["storedState"].(string); ok {
				v.Stored = stored
			}
			if replayed, ok := std.Metadata["replayedState"].(string); ok {
				v.Replayed = replayed
			}
			report.Violations = append(report.Violations, v)
		}
		if len(ids) < a.pageSize {
			break
		}
		after = ids[len(ids)-1]
	}

	a.logger.Info("integrity sweep complete", map[string]interface{}{
		"checked":    report.Checked,
		"violations": len(report.Violations),
	})
	return report, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (a *Auditor) Run(ctx context.Context) {
	if a.interval <= 0 {
		return
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Sweep(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("integrity sweep aborted", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
