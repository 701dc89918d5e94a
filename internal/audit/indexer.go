package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Indexer projects committed transition records into Elasticsearch for search.
// It runs after commit and never fails the transition; the Postgres log stays authoritative.
type Indexer struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client:  client,
		index:   index,
		timeout: 5 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"component": "audit-indexer"}),
	}
}

// Index writes rec under its record ID, so a retried call overwrites rather than duplicates.
func (ix *Indexer) Index(ctx context.Context, rec models.TransitionRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal transition record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ix.timeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("index transition record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index transition record: %s", res.Status())
	}
	return nil
}

// Publish indexes rec and swallows the failure after logging it.
func (ix *Indexer) Publish(ctx context.Context, rec models.TransitionRecord) {
	if err := ix.Index(ctx, rec); err != nil {
		metrics.AuditIndexFailuresTotal.Inc()
		ix.logger.Warn("transition record not indexed", map[string]interface{}{
			"applicationId": rec.ApplicationID,
			"recordId":      rec.ID,
			"seq":           rec.Seq,
			"error":         err.Error(),
		})
	}
}
