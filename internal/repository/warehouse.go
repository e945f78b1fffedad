// Package repository defines the persistence port for the feedback warehouse.
package repository

import (
	"context"
	"time"

	"github.com/openihd/feedmart/internal/entity"
)

// Warehouse is the persistence port for the star schema. Lookup methods
// return (nil, nil) when no row matches. Implementations must be safe for
// concurrent use.
type Warehouse interface {
	// FindTimeByDate looks up the time dimension row for a calendar date.
	FindTimeByDate(ctx context.Context, date time.Time) (*entity.DimTime, error)
	// InsertTime inserts a time dimension row. A concurrent insert of the
	// same date surfaces as a duplicate-key error.
	InsertTime(ctx context.Context, row *entity.DimTime) error

	// FindUserByID looks up a user dimension row by its natural key.
	FindUserByID(ctx context.Context, userID string) (*entity.DimUser, error)
	// InsertUserIfAbsent inserts a user row, keeping the existing row's
	// attributes when the user is already present (first write wins).
	InsertUserIfAbsent(ctx context.Context, row *entity.DimUser) error

	// FindLocationByString looks up a location row by the raw location text.
	FindLocationByString(ctx context.Context, locationString string) (*entity.DimLocation, error)
	// InsertLocation inserts a location dimension row.
	InsertLocation(ctx context.Context, row *entity.DimLocation) error

	// FindIssueByID looks up an issue row by the classifier-assigned id.
	FindIssueByID(ctx context.Context, issueID int) (*entity.DimIssue, error)
	// InsertIssueIfAbsent inserts an issue row, keeping the existing row on conflict.
	InsertIssueIfAbsent(ctx context.Context, row *entity.DimIssue) error

	// FindHashtagByText looks up a hashtag row by its normalized text.
	FindHashtagByText(ctx context.Context, text string) (*entity.DimHashtag, error)
	// InsertHashtag inserts a hashtag dimension row.
	InsertHashtag(ctx context.Context, row *entity.DimHashtag) error

	// FindAgencyByAccount looks up an agency row by its account handle.
	FindAgencyByAccount(ctx context.Context, account string) (*entity.DimAgency, error)
	// InsertAgency inserts an agency dimension row.
	InsertAgency(ctx context.Context, row *entity.DimAgency) error

	// ExistingTweetIDs returns which of the given source identifiers already
	// have a fact row, in a single query.
	ExistingTweetIDs(ctx context.Context, tweetIDs []string) ([]string, error)
	// BulkInsertFacts inserts fact rows in one batch.
	BulkInsertFacts(ctx context.Context, facts []entity.FactFeedback) error
	// BulkInsertHashtagBridges inserts hashtag bridge rows in one batch.
	BulkInsertHashtagBridges(ctx context.Context, bridges []entity.BridgeFeedbackHashtag) error
	// BulkInsertAgencyBridges inserts agency bridge rows in one batch.
	BulkInsertAgencyBridges(ctx context.Context, bridges []entity.BridgeFeedbackAgency) error

	// ReserveFeedbackIDs atomically reserves a block of fact surrogate keys
	// from the durable sequence and returns the first reserved value.
	ReserveFeedbackIDs(ctx context.Context, blockSize int64) (int64, error)

	// AppendErrorLog records one record-level failure.
	AppendErrorLog(ctx context.Context, row *entity.JobErrorLog) error
	// ErrorsForRun returns the failures logged for a run, oldest first.
	ErrorsForRun(ctx context.Context, runID string) ([]entity.JobErrorLog, error)

	// WithinTx runs fn against a Warehouse bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Warehouse) error) error
}
