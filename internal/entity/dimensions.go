// Package entity defines the warehouse star-schema rows as GORM entities.
package entity

import "time"

// DimTime is one calendar day with its derived attributes.
type DimTime struct {
	TimeID     int64     `gorm:"column:time_id;primaryKey;autoIncrement"`
	FullDate   time.Time `gorm:"column:full_date;uniqueIndex;not null"`
	Year       int       `gorm:"column:year;not null"`
	Quarter    int       `gorm:"column:quarter;not null"`
	Month      int       `gorm:"column:month;not null"`
	MonthName  string    `gorm:"column:month_name;size:20;not null"`
	Day        int       `gorm:"column:day;not null"`
	DayOfWeek  int       `gorm:"column:day_of_week;not null"`
	DayName    string    `gorm:"column:day_name;size:20;not null"`
	WeekOfYear int       `gorm:"column:week_of_year;not null"`
	IsWeekend  bool      `gorm:"column:is_weekend;not null"`
	IsHoliday  bool      `gorm:"column:is_holiday;not null"`
}

// TableName specifies the table name for DimTime.
func (DimTime) TableName() string {
	return "dim_time"
}

// DimUser is one feedback author, keyed by the platform-assigned identifier.
type DimUser struct {
	UserID         string     `gorm:"column:user_id;primaryKey;size:50"`
	Username       string     `gorm:"column:username;size:255"`
	CreatedAt      *time.Time `gorm:"column:created_at;autoCreateTime:false"`
	FollowersCount int        `gorm:"column:followers_count"`
	FollowingCount int        `gorm:"column:following_count"`
	TweetCount     int        `gorm:"column:tweet_count"`
	ListedCount    int        `gorm:"column:listed_count"`
}

// TableName specifies the table name for DimUser.
func (DimUser) TableName() string {
	return "dim_user"
}

// DimLocation is one distinct free-text location string, keyed by the raw text.
type DimLocation struct {
	LocationID     int64   `gorm:"column:location_id;primaryKey;autoIncrement"`
	LocationString string  `gorm:"column:location_string;size:255;uniqueIndex;not null"`
	Country        *string `gorm:"column:country;size:100"`
	City           *string `gorm:"column:city;size:100"`
	Region         *string `gorm:"column:region;size:100"`
}

// TableName specifies the table name for DimLocation.
func (DimLocation) TableName() string {
	return "dim_location"
}

// DimIssue is one issue classification, keyed by the classifier-assigned id.
type DimIssue struct {
	IssueID        int    `gorm:"column:issue_id;primaryKey"`
	IssueClassKey  int    `gorm:"column:issue_class_key"`
	IssueClassCode string `gorm:"column:issue_class_code;size:100"`
}

// TableName specifies the table name for DimIssue.
func (DimIssue) TableName() string {
	return "dim_issue"
}

// DimHashtag is one distinct hashtag with the leading '#' stripped.
type DimHashtag struct {
	HashtagID   int64  `gorm:"column:hashtag_id;primaryKey;autoIncrement"`
	HashtagText string `gorm:"column:hashtag_text;size:255;uniqueIndex;not null"`
}

// TableName specifies the table name for DimHashtag.
func (DimHashtag) TableName() string {
	return "dim_hashtag"
}

// DimAgency is one mentioned government agency account.
type DimAgency struct {
	AgencyID      int64   `gorm:"column:agency_id;primaryKey;autoIncrement"`
	AgencyName    string  `gorm:"column:agency_name;size:255"`
	AgencyAccount string  `gorm:"column:agency_account;size:255;uniqueIndex;not null"`
	Sector        *string `gorm:"column:sector;size:100"`
	Department    *string `gorm:"column:department;size:100"`
}

// TableName specifies the table name for DimAgency.
func (DimAgency) TableName() string {
	return "dim_agency"
}
