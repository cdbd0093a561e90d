package models

import "time"

// Policy lifecycle states.
const (
	PolicyStatusDraft     = "draft"
	PolicyStatusActive    = "active"
	PolicyStatusCompleted = "completed"
	PolicyStatusArchived  = "archived"
)

// Vote choices.
const (
	VoteYes = "yes"
	VoteNo  = "no"
)

// PolicyCategories is the closed set of votable policy categories.
var PolicyCategories = []string{"Environment", "Healthcare", "Technology", "Education", "Economy"}

// Policy is a votable policy proposal. Tallies are write-only for citizens
// while voting is open; they become readable once the policy completes.
type Policy struct {
	BaseModel

	Title            string `gorm:"uniqueIndex;not null" json:"title"`
	Description      string `gorm:"not null" json:"description"`
	ShortDescription string `gorm:"not null" json:"short_description"`
	Category         string `gorm:"not null;index" json:"category"`

	VotingStartDate time.Time `gorm:"not null" json:"voting_start_date"`
	VotingEndDate   time.Time `gorm:"not null" json:"voting_end_date"`
	Status          string    `gorm:"default:draft;index" json:"status"`

	VotesYes int64 `gorm:"default:0" json:"-"`
	VotesNo  int64 `gorm:"default:0" json:"-"`

	Votes []PolicyVote `gorm:"foreignKey:PolicyID" json:"-"`
}

// PolicyVote is one citizen's vote on one policy. The composite unique index
// is the ledger's at-most-one-vote-per-user guarantee: the conditional
// insert either lands or collides, there is no separate read-then-write.
type PolicyVote struct {
	BaseModel

	PolicyID string    `gorm:"type:uuid;not null;uniqueIndex:idx_policy_voter" json:"policy_id"`
	UserID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_policy_voter" json:"user_id"`
	Choice   string    `gorm:"not null" json:"choice"`
	VotedAt  time.Time `gorm:"not null" json:"voted_at"`
}
