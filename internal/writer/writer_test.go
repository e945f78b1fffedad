package writer_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/repository/gormrepo"
	"github.com/openihd/feedmart/internal/transform"
	"github.com/openihd/feedmart/internal/writer"
)

func newTestWarehouse(t *testing.T) (repository.Warehouse, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "warehouse.db")), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entity.DimTime{},
		&entity.DimUser{},
		&entity.FactFeedback{},
		&entity.BridgeFeedbackHashtag{},
		&entity.BridgeFeedbackAgency{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return gormrepo.NewWarehouseRepository(db), db
}

func seedReferences(t *testing.T, db *gorm.DB, date time.Time) (timeID int64) {
	t.Helper()
	timeRow := entity.DimTime{FullDate: date, Year: date.Year(), MonthName: "x", DayName: "x"}
	require.NoError(t, db.Create(&timeRow).Error)
	require.NoError(t, db.Create(&entity.DimUser{UserID: "u1"}).Error)
	return timeRow.TimeID
}

func makeBundle(tweetID string, feedbackID int64, timeID int64, date time.Time) *transform.FeedbackBundle {
	return &transform.FeedbackBundle{
		Fact: entity.FactFeedback{
			FeedbackID:  feedbackID,
			CreatedDate: date,
			TweetID:     tweetID,
			TimeID:      timeID,
			UserID:      "u1",
			Platform:    "twitter",
			Text:        "text " + tweetID,
		},
		Hashtags: []entity.BridgeFeedbackHashtag{
			{FeedbackID: feedbackID, HashtagID: 1, CreatedDate: date},
		},
	}
}

func TestFactWriter_WritesChunkWithBridges(t *testing.T) {
	warehouse, db := newTestWarehouse(t)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	timeID := seedReferences(t, db, date)

	w := writer.NewFactWriter("run-1", warehouse)
	bundles := make([]*transform.FeedbackBundle, 0, 5)
	for i := 0; i < 5; i++ {
		bundles = append(bundles, makeBundle(fmt.Sprintf("t%d", i), int64(i+1), timeID, date))
	}

	result, err := w.Write(context.Background(), bundles)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Written)
	assert.Equal(t, 0, result.Skipped)

	var factCount, bridgeCount int64
	require.NoError(t, db.Model(&entity.FactFeedback{}).Count(&factCount).Error)
	require.NoError(t, db.Model(&entity.BridgeFeedbackHashtag{}).Count(&bridgeCount).Error)
	assert.EqualValues(t, 5, factCount)
	assert.EqualValues(t, 5, bridgeCount)
}

func TestFactWriter_SkipsRecordsAlreadyInWarehouse(t *testing.T) {
	warehouse, db := newTestWarehouse(t)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	timeID := seedReferences(t, db, date)

	w := writer.NewFactWriter("run-1", warehouse)
	first := []*transform.FeedbackBundle{
		makeBundle("t1", 1, timeID, date),
		makeBundle("t2", 2, timeID, date),
	}
	_, err := w.Write(context.Background(), first)
	require.NoError(t, err)

	// Second chunk re-sends t2 under a fresh surrogate id plus a new record.
	second := []*transform.FeedbackBundle{
		makeBundle("t2", 3, timeID, date),
		makeBundle("t3", 4, timeID, date),
	}
	result, err := w.Write(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 1, result.Skipped)

	var factCount int64
	require.NoError(t, db.Model(&entity.FactFeedback{}).Count(&factCount).Error)
	assert.EqualValues(t, 3, factCount)
}

func TestFactWriter_DedupsWithinChunkFirstOccurrenceWins(t *testing.T) {
	warehouse, db := newTestWarehouse(t)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	timeID := seedReferences(t, db, date)

	w := writer.NewFactWriter("run-1", warehouse)
	bundles := []*transform.FeedbackBundle{
		makeBundle("t1", 1, timeID, date),
		makeBundle("t1", 2, timeID, date),
		makeBundle("t1", 3, timeID, date),
	}

	result, err := w.Write(context.Background(), bundles)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 2, result.Skipped)

	var fact entity.FactFeedback
	require.NoError(t, db.First(&fact, "tweet_id = ?", "t1").Error)
	assert.EqualValues(t, 1, fact.FeedbackID, "the first occurrence is the one kept")
}

func TestFactWriter_RerunningSameFileWritesNothing(t *testing.T) {
	warehouse, db := newTestWarehouse(t)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	timeID := seedReferences(t, db, date)

	w := writer.NewFactWriter("run-1", warehouse)
	bundles := []*transform.FeedbackBundle{
		makeBundle("t1", 1, timeID, date),
		makeBundle("t2", 2, timeID, date),
	}
	_, err := w.Write(context.Background(), bundles)
	require.NoError(t, err)

	rerun := []*transform.FeedbackBundle{
		makeBundle("t1", 3, timeID, date),
		makeBundle("t2", 4, timeID, date),
	}
	result, err := w.Write(context.Background(), rerun)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Written)
	assert.Equal(t, 2, result.Skipped)

	var factCount int64
	require.NoError(t, db.Model(&entity.FactFeedback{}).Count(&factCount).Error)
	assert.EqualValues(t, 2, factCount)
}

func TestFactWriter_EmptyChunk(t *testing.T) {
	warehouse, _ := newTestWarehouse(t)
	w := writer.NewFactWriter("run-1", warehouse)

	result, err := w.Write(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Written)
	assert.Equal(t, 0, result.Skipped)
}
