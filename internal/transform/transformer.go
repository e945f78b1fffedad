// Package transform converts raw feedback records into warehouse-ready
// fact and bridge rows, resolving all dimension references on the way.
package transform

import (
	"context"
	"time"

	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/errorlog"
	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/pipeline"
	"github.com/openihd/feedmart/internal/resolver"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

const moduleName = "transform"

// FeedbackBundle is the write unit produced for one raw record: the fact
// row plus its bridge rows. Bridge rows already carry the fact's surrogate
// key, the grouping lets the writer drop a duplicate fact together with
// its bridges.
type FeedbackBundle struct {
	Fact     entity.FactFeedback
	Hashtags []entity.BridgeFeedbackHashtag
	Agencies []entity.BridgeFeedbackAgency
}

// Transformer implements pipeline.ItemProcessor for feedback records.
// Any transformation failure is reported to the error sink and the record
// is filtered; the pipeline itself never fails on a single bad record.
type Transformer struct {
	runID     string
	dims      *resolver.DimensionResolver
	counter   *FeedbackIDCounter
	errorSink errorlog.Sink
}

var _ pipeline.ItemProcessor[*model.RawFeedbackRecord, *FeedbackBundle] = (*Transformer)(nil)

// NewTransformer creates a transformer for one run.
func NewTransformer(runID string, dims *resolver.DimensionResolver, counter *FeedbackIDCounter, errorSink errorlog.Sink) *Transformer {
	return &Transformer{
		runID:     runID,
		dims:      dims,
		counter:   counter,
		errorSink: errorSink,
	}
}

// Process builds the fact and bridge rows for one record. Returns (nil, nil)
// when the record cannot be transformed; the failure is recorded in the
// error log with the serialized record.
func (t *Transformer) Process(ctx context.Context, record *model.RawFeedbackRecord) (*FeedbackBundle, error) {
	bundle, err := t.build(ctx, record)
	if err != nil {
		logger.Warnf("Run %s: filtering record %q: %v", t.runID, record.TweetID, err)
		t.errorSink.Report(ctx, t.runID, err, record)
		return nil, nil
	}
	return bundle, nil
}

func (t *Transformer) build(ctx context.Context, record *model.RawFeedbackRecord) (*FeedbackBundle, error) {
	createdAt, err := parseCreatedAt(record.CreatedAt)
	if err != nil {
		return nil, err
	}
	createdDate := resolver.NormalizeDate(createdAt)

	timeRow, err := t.dims.ResolveTime(ctx, createdDate)
	if err != nil {
		return nil, err
	}
	userRow, err := t.dims.ResolveUser(ctx, record.User)
	if err != nil {
		return nil, err
	}

	feedbackID, err := t.counter.Next(ctx)
	if err != nil {
		return nil, err
	}

	var locationString string
	if record.User != nil {
		locationString = record.User.LocationString
	}
	locationRow, err := t.dims.ResolveLocation(ctx, locationString)
	if err != nil {
		return nil, err
	}
	issueRow, err := t.dims.ResolveIssue(ctx, record.Issue)
	if err != nil {
		return nil, err
	}

	fact := entity.FactFeedback{
		FeedbackID:  feedbackID,
		CreatedDate: createdDate,
		TweetID:     record.TweetID,
		TimeID:      timeRow.TimeID,
		UserID:      userRow.UserID,
		Platform:    record.Platform,
		Text:        record.Text,
		Language:    record.Language,
	}
	if locationRow != nil {
		fact.LocationID = &locationRow.LocationID
	}
	if issueRow != nil {
		fact.IssueID = &issueRow.IssueID
	}
	if m := record.Metrics; m != nil {
		fact.RetweetCount = m.RetweetCount
		fact.ReplyCount = m.ReplyCount
		fact.LikeCount = m.LikeCount
		fact.QuoteCount = m.QuoteCount
		fact.BookmarkCount = m.BookmarkCount
		fact.ImpressionCount = m.ImpressionCount
	}

	bundle := &FeedbackBundle{Fact: fact}

	seenHashtags := make(map[int64]bool)
	for _, tag := range record.Hashtags {
		row, err := t.dims.ResolveHashtag(ctx, tag)
		if err != nil {
			return nil, err
		}
		if row == nil || seenHashtags[row.HashtagID] {
			continue
		}
		seenHashtags[row.HashtagID] = true
		bundle.Hashtags = append(bundle.Hashtags, entity.BridgeFeedbackHashtag{
			FeedbackID:  feedbackID,
			HashtagID:   row.HashtagID,
			CreatedDate: createdDate,
		})
	}

	seenAgencies := make(map[int64]bool)
	for _, mention := range record.Mentions {
		row, err := t.dims.ResolveAgency(ctx, mention)
		if err != nil {
			return nil, err
		}
		if row == nil || seenAgencies[row.AgencyID] {
			continue
		}
		seenAgencies[row.AgencyID] = true
		bundle.Agencies = append(bundle.Agencies, entity.BridgeFeedbackAgency{
			FeedbackID:  feedbackID,
			AgencyID:    row.AgencyID,
			CreatedDate: createdDate,
		})
	}

	return bundle, nil
}

// parseCreatedAt parses the post timestamp.
func parseCreatedAt(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, exception.NewBatchError(moduleName, "record has no created_at", nil, true, false)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, exception.NewBatchError(moduleName, "unparseable created_at value: "+value, nil, true, false)
}
