// Package resolver maps raw record attributes onto warehouse dimension rows,
// creating missing rows on first sight. Concurrent creation of the same row
// is resolved by re-reading after a uniqueness conflict, so at most one row
// per natural key ever exists.
package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

const moduleName = "resolver"

// DimensionResolver finds or creates dimension rows by natural key.
type DimensionResolver struct {
	warehouse repository.Warehouse
}

// NewDimensionResolver creates a resolver over the warehouse repository.
func NewDimensionResolver(warehouse repository.Warehouse) *DimensionResolver {
	return &DimensionResolver{warehouse: warehouse}
}

// ResolveTime returns the time dimension row for a calendar date, creating
// it with derived attributes when absent.
func (r *DimensionResolver) ResolveTime(ctx context.Context, date time.Time) (*entity.DimTime, error) {
	date = NormalizeDate(date)

	found, err := r.warehouse.FindTimeByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	row := BuildTimeRow(date)
	insertErr := r.warehouse.InsertTime(ctx, row)
	if insertErr == nil {
		return row, nil
	}
	return r.relookupTime(ctx, date, insertErr)
}

func (r *DimensionResolver) relookupTime(ctx context.Context, date time.Time, insertErr error) (*entity.DimTime, error) {
	if !exception.IsDuplicateKey(insertErr) {
		return nil, exception.NewBatchError(moduleName, "time dimension insert failed", insertErr, false, true)
	}
	// Another worker created the row between our lookup and insert.
	found, err := r.warehouse.FindTimeByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, exception.NewBatchError(moduleName, "time dimension row vanished after conflict", insertErr, true, false)
	}
	logger.Debugf("Time dimension race for %s resolved by re-lookup.", date.Format("2006-01-02"))
	return found, nil
}

// ResolveUser returns the user dimension row for the record author, creating
// it when absent. Attributes of an existing row are never overwritten; the
// first write wins.
func (r *DimensionResolver) ResolveUser(ctx context.Context, raw *model.RawUser) (*entity.DimUser, error) {
	if raw == nil || raw.UserID == "" {
		return nil, exception.NewBatchError(moduleName, "record has no user id", nil, true, false)
	}

	found, err := r.warehouse.FindUserByID(ctx, raw.UserID)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	row := &entity.DimUser{
		UserID:         raw.UserID,
		Username:       raw.Username,
		CreatedAt:      parseUserCreatedAt(raw.CreatedAt),
		FollowersCount: raw.FollowersCount,
		FollowingCount: raw.FollowingCount,
		TweetCount:     raw.TweetCount,
		ListedCount:    raw.ListedCount,
	}
	// The upsert keeps whichever row won a concurrent race.
	if err := r.warehouse.InsertUserIfAbsent(ctx, row); err != nil {
		return nil, exception.NewBatchError(moduleName, "user dimension insert failed", err, false, true)
	}
	persisted, err := r.warehouse.FindUserByID(ctx, raw.UserID)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, exception.NewBatchError(moduleName, "user dimension row vanished after insert", nil, true, false)
	}
	return persisted, nil
}

// ResolveLocation returns the location row for a raw location string, or
// (nil, nil) when the record carries no location. The string splits on the
// first comma into city and country; without a comma the whole string is
// the country. Region is never populated.
func (r *DimensionResolver) ResolveLocation(ctx context.Context, locationString string) (*entity.DimLocation, error) {
	locationString = strings.TrimSpace(locationString)
	if locationString == "" {
		return nil, nil
	}

	found, err := r.warehouse.FindLocationByString(ctx, locationString)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	row := &entity.DimLocation{LocationString: locationString}
	if city, country, ok := strings.Cut(locationString, ","); ok {
		city = strings.TrimSpace(city)
		country = strings.TrimSpace(country)
		row.City = &city
		row.Country = &country
	} else {
		country := locationString
		row.Country = &country
	}

	insertErr := r.warehouse.InsertLocation(ctx, row)
	if insertErr == nil {
		return row, nil
	}
	if !exception.IsDuplicateKey(insertErr) {
		return nil, exception.NewBatchError(moduleName, "location dimension insert failed", insertErr, false, true)
	}
	found, err = r.warehouse.FindLocationByString(ctx, locationString)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, exception.NewBatchError(moduleName, "location dimension row vanished after conflict", insertErr, true, false)
	}
	return found, nil
}

// ResolveIssue returns the issue row for the record's classification, or
// (nil, nil) when the record carries none. First write wins for the class
// attributes.
func (r *DimensionResolver) ResolveIssue(ctx context.Context, raw *model.RawIssue) (*entity.DimIssue, error) {
	if raw == nil {
		return nil, nil
	}

	found, err := r.warehouse.FindIssueByID(ctx, raw.IssueID)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	row := &entity.DimIssue{IssueID: raw.IssueID}
	if raw.IssueClass != nil {
		row.IssueClassKey = raw.IssueClass.IssueClassKey
		row.IssueClassCode = raw.IssueClass.IssueClassCode
	}
	if err := r.warehouse.InsertIssueIfAbsent(ctx, row); err != nil {
		return nil, exception.NewBatchError(moduleName, "issue dimension insert failed", err, false, true)
	}
	persisted, err := r.warehouse.FindIssueByID(ctx, raw.IssueID)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, exception.NewBatchError(moduleName, "issue dimension row vanished after insert", nil, true, false)
	}
	return persisted, nil
}

// ResolveHashtag returns the hashtag row for a tag, creating it when absent.
// A leading '#' is stripped so "#Transit" and "Transit" share one row.
// Empty tags yield (nil, nil).
func (r *DimensionResolver) ResolveHashtag(ctx context.Context, tag string) (*entity.DimHashtag, error) {
	text := strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if text == "" {
		return nil, nil
	}

	found, err := r.warehouse.FindHashtagByText(ctx, text)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	row := &entity.DimHashtag{HashtagText: text}
	insertErr := r.warehouse.InsertHashtag(ctx, row)
	if insertErr == nil {
		return row, nil
	}
	if !exception.IsDuplicateKey(insertErr) {
		return nil, exception.NewBatchError(moduleName, "hashtag dimension insert failed", insertErr, false, true)
	}
	found, err = r.warehouse.FindHashtagByText(ctx, text)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, exception.NewBatchError(moduleName, "hashtag dimension row vanished after conflict", insertErr, true, false)
	}
	return found, nil
}

// ResolveAgency returns the agency row for a mention, creating it when
// absent. A leading '@' is stripped and the display name defaults to the
// account handle. Empty mentions yield (nil, nil).
func (r *DimensionResolver) ResolveAgency(ctx context.Context, mention string) (*entity.DimAgency, error) {
	account := strings.TrimPrefix(strings.TrimSpace(mention), "@")
	if account == "" {
		return nil, nil
	}

	found, err := r.warehouse.FindAgencyByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	row := &entity.DimAgency{
		AgencyAccount: account,
		AgencyName:    account,
	}
	insertErr := r.warehouse.InsertAgency(ctx, row)
	if insertErr == nil {
		return row, nil
	}
	if !exception.IsDuplicateKey(insertErr) {
		return nil, exception.NewBatchError(moduleName, "agency dimension insert failed", insertErr, false, true)
	}
	found, err = r.warehouse.FindAgencyByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, exception.NewBatchError(moduleName, "agency dimension row vanished after conflict", insertErr, true, false)
	}
	return found, nil
}

// parseUserCreatedAt parses the author's account creation timestamp,
// returning nil when the value is absent or unparseable.
func parseUserCreatedAt(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	logger.Debugf("Unparseable user created_at value: %q", value)
	return nil
}
