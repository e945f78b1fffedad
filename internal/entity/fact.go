package entity

import "time"

// FactFeedback is one ingested feedback post. The primary key is composite
// (feedback_id, created_date) to support date partitioning; tweet_id is
// deliberately NOT unique at the schema level, duplicate protection is the
// writer's responsibility.
type FactFeedback struct {
	FeedbackID      int64     `gorm:"column:feedback_id;primaryKey"`
	CreatedDate     time.Time `gorm:"column:created_date;primaryKey"`
	TweetID         string    `gorm:"column:tweet_id;size:50;index;not null"`
	TimeID          int64     `gorm:"column:time_id;not null"`
	UserID          string    `gorm:"column:user_id;size:50;not null"`
	LocationID      *int64    `gorm:"column:location_id"`
	IssueID         *int      `gorm:"column:issue_id"`
	Platform        string    `gorm:"column:platform;size:50"`
	Text            string    `gorm:"column:text;type:text"`
	Language        string    `gorm:"column:language;size:10"`
	RetweetCount    int       `gorm:"column:retweet_count"`
	ReplyCount      int       `gorm:"column:reply_count"`
	LikeCount       int       `gorm:"column:like_count"`
	QuoteCount      int       `gorm:"column:quote_count"`
	BookmarkCount   int       `gorm:"column:bookmark_count"`
	ImpressionCount int       `gorm:"column:impression_count"`
}

// TableName specifies the table name for FactFeedback.
func (FactFeedback) TableName() string {
	return "fact_feedback"
}

// BridgeFeedbackHashtag links one fact row to one hashtag.
type BridgeFeedbackHashtag struct {
	FeedbackID  int64     `gorm:"column:feedback_id;primaryKey"`
	HashtagID   int64     `gorm:"column:hashtag_id;primaryKey"`
	CreatedDate time.Time `gorm:"column:created_date;primaryKey"`
}

// TableName specifies the table name for BridgeFeedbackHashtag.
func (BridgeFeedbackHashtag) TableName() string {
	return "bridge_feedback_hashtag"
}

// BridgeFeedbackAgency links one fact row to one mentioned agency.
type BridgeFeedbackAgency struct {
	FeedbackID  int64     `gorm:"column:feedback_id;primaryKey"`
	AgencyID    int64     `gorm:"column:agency_id;primaryKey"`
	CreatedDate time.Time `gorm:"column:created_date;primaryKey"`
}

// TableName specifies the table name for BridgeFeedbackAgency.
func (BridgeFeedbackAgency) TableName() string {
	return "bridge_feedback_agency"
}
