// Package worker runs the asynchronous backup pipeline: it pops backup jobs
// off the Redis queue, builds the full export document and ships it to S3.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/admin"
	"github.com/gaming-workshop/backend/pkg/queue"
	"github.com/gaming-workshop/backend/pkg/storage"
)

// BackupProcessor processes backup jobs: export both collections, upload the
// document to the backups bucket.
type BackupProcessor struct {
	exporter *admin.Exporter
	s3       *storage.S3
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewBackupProcessor creates a backup processor.
func NewBackupProcessor(exporter *admin.Exporter, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *BackupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupProcessor{exporter: exporter, s3: s3, queue: q, logger: logger}
}

// Process executes one backup job.
func (p *BackupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeBackup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.BackupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	doc, err := p.exporter.Full(ctx)
	if err != nil {
		return fmt.Errorf("build export: %w", err)
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	key := storage.BackupKey(doc.ExportDate.Format("2006-01-02"), job.ID)
	s3URL, err := p.s3.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	p.logger.Info("backup completed",
		zap.String("job_id", job.ID),
		zap.String("s3_key", key),
		zap.String("url", s3URL),
		zap.Int("registrations", doc.Statistics.TotalRegistrations),
		zap.Int("sessions", len(doc.Sessions)),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *BackupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("backup worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
