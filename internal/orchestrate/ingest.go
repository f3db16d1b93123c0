// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

const (
	defaultIngestWorkers = 2
	defaultIngestQueue   = 256
	defaultMaxBatch      = 50

	// estimatedCostPerPaper feeds the batch cost estimate reported in
	// veto reasons. Unitless downstream-cost proxy.
	estimatedCostPerPaper = 0.25

	// ingestTimeout bounds one background upsert.
	ingestTimeout = 15 * time.Second
)

// BatchCostPolicy vetoes ingestion batches above a fixed size. The default
// policy when no external one is supplied.
type BatchCostPolicy struct {
	maxBatch int
}

// NewBatchCostPolicy returns a policy allowing batches up to maxBatch
// papers. Non-positive maxBatch falls back to the default.
func NewBatchCostPolicy(maxBatch int) *BatchCostPolicy {
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	return &BatchCostPolicy{maxBatch: maxBatch}
}

// ValidateIngestCost implements CostPolicy.
func (p *BatchCostPolicy) ValidateIngestCost(batchSize int) types.CostDecision {
	cost := float64(batchSize) * estimatedCostPerPaper
	if batchSize > p.maxBatch {
		return types.CostDecision{
			Allowed:       false,
			Reason:        fmt.Sprintf("batch of %d exceeds limit of %d", batchSize, p.maxBatch),
			EstimatedCost: cost,
		}
	}
	return types.CostDecision{Allowed: true, EstimatedCost: cost}
}

// ingestQueue runs background paper upserts on a fixed worker pool over a
// bounded channel. Enqueue never blocks the search path: when the queue is
// full the paper is dropped and the drop logged.
type ingestQueue struct {
	ch     chan types.AcademicPaper
	wg     sync.WaitGroup
	store  PaperStore
	logger *slog.Logger

	closeOnce sync.Once
}

func newIngestQueue(store PaperStore, cfg types.IngestConfig, logger *slog.Logger) *ingestQueue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultIngestWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultIngestQueue
	}

	q := &ingestQueue{
		ch:     make(chan types.AcademicPaper, size),
		store:  store,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *ingestQueue) worker() {
	defer q.wg.Done()
	for paper := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		res, err := q.store.IngestPaper(ctx, paper)
		cancel()
		if err != nil {
			q.logger.Warn("background ingest failed", "title", paper.Title, "error", err)
			continue
		}
		q.logger.Debug("paper ingested", "paper_id", res.PaperID, "new", res.IsNewPaper)
	}
}

// Enqueue submits a paper for background ingestion. Reports false when the
// queue is full and the paper was dropped.
func (q *ingestQueue) Enqueue(paper types.AcademicPaper) bool {
	select {
	case q.ch <- paper:
		return true
	default:
		q.logger.Warn("ingest queue full, dropping paper", "title", paper.Title)
		return false
	}
}

// Close stops accepting papers and waits for in-flight upserts to finish.
func (q *ingestQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.ch)
		q.wg.Wait()
	})
}
