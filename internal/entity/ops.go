package entity

import "time"

// JobErrorLog records one record-level ingestion failure for later inspection.
type JobErrorLog struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	JobID        string    `gorm:"column:job_id;size:64;index;not null"`
	ErrorMessage string    `gorm:"column:error_message;type:text"`
	StackTrace   string    `gorm:"column:stack_trace;type:text"`
	ItemData     string    `gorm:"column:item_data;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for JobErrorLog.
func (JobErrorLog) TableName() string {
	return "job_error_log"
}

// FeedbackSequence is the durable allocator for fact surrogate keys.
// NextValue is the first identifier not yet handed out.
type FeedbackSequence struct {
	Name      string `gorm:"column:name;primaryKey;size:50"`
	NextValue int64  `gorm:"column:next_value;not null"`
}

// TableName specifies the table name for FeedbackSequence.
func (FeedbackSequence) TableName() string {
	return "feedback_sequence"
}

// SequenceFeedbackID is the name of the sequence row for fact surrogate keys.
const SequenceFeedbackID = "feedback_id"
