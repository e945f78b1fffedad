package model

// RawFeedbackRecord is one feedback post as it appears in an input file.
type RawFeedbackRecord struct {
	Platform  string      `json:"platform"`
	TweetID   string      `json:"tweet_id"`
	Text      string      `json:"text"`
	CreatedAt string      `json:"created_at"`
	Language  string      `json:"language"`
	Hashtags  []string    `json:"hashtags"`
	Mentions  []string    `json:"mentions"`
	Metrics   *RawMetrics `json:"metrics"`
	Issue     *RawIssue   `json:"issue"`
	User      *RawUser    `json:"user"`
}

// RawUser is the author block of a feedback record.
type RawUser struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	CreatedAt      string `json:"created_at"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	TweetCount     int    `json:"tweet_count"`
	ListedCount    int    `json:"listed_count"`
	LocationString string `json:"location_string"`
}

// RawMetrics is the engagement block of a feedback record.
type RawMetrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count"`
	ImpressionCount int `json:"impression_count"`
}

// RawIssue is the classification block of a feedback record.
type RawIssue struct {
	IssueID    int            `json:"issue_id"`
	IssueClass *RawIssueClass `json:"issue_class"`
}

// RawIssueClass names the issue category a record was classified into.
type RawIssueClass struct {
	IssueClassKey  int    `json:"issue_class_key"`
	IssueClassCode string `json:"issue_class_code"`
}
