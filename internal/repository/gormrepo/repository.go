// Package gormrepo implements the warehouse repository on GORM.
package gormrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

const moduleName = "warehouse"

// sequenceCASAttempts bounds the optimistic update loop in ReserveFeedbackIDs.
const sequenceCASAttempts = 10

// WarehouseRepository is the GORM implementation of repository.Warehouse.
type WarehouseRepository struct {
	db *gorm.DB
}

var _ repository.Warehouse = (*WarehouseRepository)(nil)

// NewWarehouseRepository creates a repository over an open GORM handle.
func NewWarehouseRepository(db *gorm.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// findOne runs the query and maps gorm.ErrRecordNotFound to a nil result.
func findOne[T any](ctx context.Context, db *gorm.DB, conds ...interface{}) (*T, error) {
	var row T
	err := db.WithContext(ctx).First(&row, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "dimension lookup failed", err, false, true)
	}
	return &row, nil
}

func (r *WarehouseRepository) FindTimeByDate(ctx context.Context, date time.Time) (*entity.DimTime, error) {
	return findOne[entity.DimTime](ctx, r.db, "full_date = ?", date)
}

func (r *WarehouseRepository) InsertTime(ctx context.Context, row *entity.DimTime) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *WarehouseRepository) FindUserByID(ctx context.Context, userID string) (*entity.DimUser, error) {
	return findOne[entity.DimUser](ctx, r.db, "user_id = ?", userID)
}

func (r *WarehouseRepository) InsertUserIfAbsent(ctx context.Context, row *entity.DimUser) error {
	// ON CONFLICT DO NOTHING keeps the first-seen attributes for a user.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *WarehouseRepository) FindLocationByString(ctx context.Context, locationString string) (*entity.DimLocation, error) {
	return findOne[entity.DimLocation](ctx, r.db, "location_string = ?", locationString)
}

func (r *WarehouseRepository) InsertLocation(ctx context.Context, row *entity.DimLocation) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *WarehouseRepository) FindIssueByID(ctx context.Context, issueID int) (*entity.DimIssue, error) {
	return findOne[entity.DimIssue](ctx, r.db, "issue_id = ?", issueID)
}

func (r *WarehouseRepository) InsertIssueIfAbsent(ctx context.Context, row *entity.DimIssue) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issue_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *WarehouseRepository) FindHashtagByText(ctx context.Context, text string) (*entity.DimHashtag, error) {
	return findOne[entity.DimHashtag](ctx, r.db, "hashtag_text = ?", text)
}

func (r *WarehouseRepository) InsertHashtag(ctx context.Context, row *entity.DimHashtag) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *WarehouseRepository) FindAgencyByAccount(ctx context.Context, account string) (*entity.DimAgency, error) {
	return findOne[entity.DimAgency](ctx, r.db, "agency_account = ?", account)
}

func (r *WarehouseRepository) InsertAgency(ctx context.Context, row *entity.DimAgency) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *WarehouseRepository) ExistingTweetIDs(ctx context.Context, tweetIDs []string) ([]string, error) {
	if len(tweetIDs) == 0 {
		return nil, nil
	}
	var existing []string
	err := r.db.WithContext(ctx).
		Model(&entity.FactFeedback{}).
		Where("tweet_id IN ?", tweetIDs).
		Distinct().
		Pluck("tweet_id", &existing).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "existing tweet id lookup failed", err, false, true)
	}
	return existing, nil
}

func (r *WarehouseRepository) BulkInsertFacts(ctx context.Context, facts []entity.FactFeedback) error {
	if len(facts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&facts).Error
}

func (r *WarehouseRepository) BulkInsertHashtagBridges(ctx context.Context, bridges []entity.BridgeFeedbackHashtag) error {
	if len(bridges) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&bridges).Error
}

func (r *WarehouseRepository) BulkInsertAgencyBridges(ctx context.Context, bridges []entity.BridgeFeedbackAgency) error {
	if len(bridges) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&bridges).Error
}

// ReserveFeedbackIDs advances the durable sequence by blockSize using an
// optimistic compare-and-set, which works identically on postgres, mysql,
// and sqlite. Returns the first value of the reserved block.
func (r *WarehouseRepository) ReserveFeedbackIDs(ctx context.Context, blockSize int64) (int64, error) {
	if blockSize <= 0 {
		return 0, exception.NewBatchError(moduleName, "block size must be positive", nil, false, false)
	}

	for attempt := 0; attempt < sequenceCASAttempts; attempt++ {
		var seq entity.FeedbackSequence
		err := r.db.WithContext(ctx).
			Where("name = ?", entity.SequenceFeedbackID).
			First(&seq).Error
		if err != nil {
			return 0, exception.NewBatchError(moduleName, "feedback sequence row not found", err, false, true)
		}

		result := r.db.WithContext(ctx).
			Model(&entity.FeedbackSequence{}).
			Where("name = ? AND next_value = ?", entity.SequenceFeedbackID, seq.NextValue).
			Update("next_value", seq.NextValue+blockSize)
		if result.Error != nil {
			return 0, exception.NewBatchError(moduleName, "feedback sequence update failed", result.Error, false, true)
		}
		if result.RowsAffected == 1 {
			return seq.NextValue, nil
		}
		// Lost the race against a concurrent reservation; re-read and retry.
		logger.Debugf("Feedback sequence CAS lost (attempt %d), retrying.", attempt+1)
	}
	return 0, exception.NewBatchError(moduleName, "feedback sequence contention exceeded retry budget", nil, false, true)
}

func (r *WarehouseRepository) AppendErrorLog(ctx context.Context, row *entity.JobErrorLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *WarehouseRepository) ErrorsForRun(ctx context.Context, runID string) ([]entity.JobErrorLog, error) {
	var rows []entity.JobErrorLog
	err := r.db.WithContext(ctx).
		Where("job_id = ?", runID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "error log query failed", err, false, true)
	}
	return rows, nil
}

// WithinTx binds a repository to one transaction for the duration of fn.
func (r *WarehouseRepository) WithinTx(ctx context.Context, fn func(tx repository.Warehouse) error) error {
	return r.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(&WarehouseRepository{db: txDB})
	})
}
