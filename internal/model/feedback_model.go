package model

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is unique per (session, query, response); hashes keep the index small.
type Feedback struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId    string    `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_feedback_pair"`
	TurnId       string    `gorm:"type:varchar(64)"`
	Query        string    `gorm:"type:text;not null"`
	Response     string    `gorm:"type:text;not null"`
	QueryHash    string    `gorm:"type:char(64);not null;uniqueIndex:idx_feedback_pair"`
	ResponseHash string    `gorm:"type:char(64);not null;uniqueIndex:idx_feedback_pair"`
	Liked        bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}
