// Package writer persists transformed feedback bundles to the warehouse.
// Each chunk is written in a single transaction: a batched existence check,
// duplicate filtering, then bulk fact and bridge inserts.
package writer

import (
	"context"

	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/pipeline"
	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
	"github.com/openihd/feedmart/internal/transform"
)

const moduleName = "writer"

// FactWriter implements pipeline.ItemWriter for feedback bundles.
type FactWriter struct {
	runID     string
	warehouse repository.Warehouse
}

var _ pipeline.ItemWriter[*transform.FeedbackBundle] = (*FactWriter)(nil)

// NewFactWriter creates a writer for one run.
func NewFactWriter(runID string, warehouse repository.Warehouse) *FactWriter {
	return &FactWriter{runID: runID, warehouse: warehouse}
}

// Write persists one chunk atomically. Records whose source identifier is
// already in the warehouse, or that appear more than once within the
// chunk, are dropped and counted as skipped; the rest of the chunk still
// commits. Re-running the same file therefore inserts nothing new.
func (w *FactWriter) Write(ctx context.Context, bundles []*transform.FeedbackBundle) (pipeline.WriteResult, error) {
	var result pipeline.WriteResult
	if len(bundles) == 0 {
		return result, nil
	}

	tweetIDs := make([]string, 0, len(bundles))
	for _, b := range bundles {
		tweetIDs = append(tweetIDs, b.Fact.TweetID)
	}

	err := w.warehouse.WithinTx(ctx, func(tx repository.Warehouse) error {
		existing, err := tx.ExistingTweetIDs(ctx, tweetIDs)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing))
		for _, id := range existing {
			seen[id] = true
		}

		facts := make([]entity.FactFeedback, 0, len(bundles))
		var hashtagBridges []entity.BridgeFeedbackHashtag
		var agencyBridges []entity.BridgeFeedbackAgency

		for _, b := range bundles {
			if seen[b.Fact.TweetID] {
				logger.Warnf("Run %s: skipping duplicate record %q.", w.runID, b.Fact.TweetID)
				result.Skipped++
				continue
			}
			seen[b.Fact.TweetID] = true
			facts = append(facts, b.Fact)
			hashtagBridges = append(hashtagBridges, b.Hashtags...)
			agencyBridges = append(agencyBridges, b.Agencies...)
		}

		if err := tx.BulkInsertFacts(ctx, facts); err != nil {
			return err
		}
		if err := tx.BulkInsertHashtagBridges(ctx, hashtagBridges); err != nil {
			return err
		}
		if err := tx.BulkInsertAgencyBridges(ctx, agencyBridges); err != nil {
			return err
		}

		result.Written = len(facts)
		return nil
	})
	if err != nil {
		result = pipeline.WriteResult{}
		if exception.IsBatchError(err) {
			return result, err
		}
		// A uniqueness violation mid-insert means a concurrent run beat us to
		// a record; the chunk is retried and the loser is skipped next pass.
		if exception.IsDuplicateKey(err) {
			return result, exception.NewBatchError(moduleName, "duplicate record during chunk insert", err, true, true)
		}
		return result, exception.NewBatchError(moduleName, "chunk write failed", err, false, true)
	}

	logger.Debugf("Run %s: committed chunk (written=%d skipped=%d).", w.runID, result.Written, result.Skipped)
	return result, nil
}
