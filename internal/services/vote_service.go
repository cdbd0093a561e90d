package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/realtime"
	apperrors "github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/logger"
	"github.com/jansathi/portal/pkg/metrics"
)

// VoteEvent is broadcast to admin dashboards whenever a vote is recorded.
type VoteEvent struct {
	PolicyID string    `json:"policy_id"`
	Choice   string    `json:"choice"`
	VotesYes int64     `json:"votes_yes"`
	VotesNo  int64     `json:"votes_no"`
	VotedAt  time.Time `json:"voted_at"`
}

// PolicyResults is the tally projection exposed once voting closes.
type PolicyResults struct {
	PolicyID   string `json:"policy_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	VotesYes   int64  `json:"votes_yes"`
	VotesNo    int64  `json:"votes_no"`
	TotalVotes int64  `json:"total_votes"`
}

// VoteService is the policy vote ledger. The at-most-one-vote-per-user
// guarantee rests on a conditional insert against the votes table's composite
// unique index; the tally increment rides in the same transaction, so a vote
// is either fully recorded or not at all.
type VoteService struct {
	db  *gorm.DB
	hub *realtime.Hub
	now func() time.Time
	log *zap.Logger
}

// NewVoteService constructs a VoteService. The hub may be nil when no live
// feed is wired.
func NewVoteService(db *gorm.DB, hub *realtime.Hub) (*VoteService, error) {
	if db == nil {
		return nil, errors.New("vote service: db is required")
	}
	return &VoteService{
		db:  db,
		hub: hub,
		now: time.Now,
		log: logger.WithModule("votes"),
	}, nil
}

// CastVote records one citizen's vote on one policy. Concurrent duplicate
// requests resolve to exactly one recorded vote and one AlreadyVoted
// rejection; the tally moves by exactly one.
func (s *VoteService) CastVote(ctx context.Context, policyID, userID, choice string) error {
	ctx = ensureContext(ctx)

	policyID = strings.TrimSpace(policyID)
	userID = strings.TrimSpace(userID)
	if policyID == "" || userID == "" {
		return apperrors.NewBadRequest("Policy and voter are required")
	}

	choice = strings.ToLower(strings.TrimSpace(choice))
	if choice != models.VoteYes && choice != models.VoteNo {
		return apperrors.NewBadRequest("Vote must be yes or no")
	}

	var policy models.Policy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", policyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.VoteRejections.WithLabelValues("not_found").Inc()
			return apperrors.ErrNotFound
		}
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	now := s.now().UTC()
	if !policyVotable(&policy, now) {
		metrics.VoteRejections.WithLabelValues("not_votable").Inc()
		return apperrors.ErrPolicyNotVotable
	}

	tallyColumn := "votes_yes"
	if choice == models.VoteNo {
		tallyColumn = "votes_no"
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := models.PolicyVote{
			PolicyID: policyID,
			UserID:   userID,
			Choice:   choice,
			VotedAt:  now,
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "policy_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&vote)
		if res.Error != nil {
			if isUniqueConstraintError(res.Error) {
				return apperrors.ErrAlreadyVoted
			}
			return fmt.Errorf("insert vote: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAlreadyVoted
		}

		return tx.Model(&models.Policy{}).
			Where("id = ?", policyID).
			UpdateColumn(tallyColumn, gorm.Expr(tallyColumn+" + 1")).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if appErr.Code == apperrors.ErrAlreadyVoted.Code {
				metrics.VoteRejections.WithLabelValues("already_voted").Inc()
			}
			return appErr
		}
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	metrics.VotesCast.WithLabelValues(choice).Inc()
	s.broadcast(ctx, policyID, choice, now)
	return nil
}

// HasVoted reports whether the user already has a ledger entry for the policy.
func (s *VoteService) HasVoted(ctx context.Context, policyID, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.PolicyVote{}).
		Where("policy_id = ? AND user_id = ?", policyID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("vote service: has voted: %w", err)
	}
	return count > 0, nil
}

// Results exposes tallies once a policy has left the voting window. While a
// policy is draft or active the tally is a write-only increment path for
// citizens, so this returns forbidden until the status moves on.
func (s *VoteService) Results(ctx context.Context, policyID string) (*PolicyResults, error) {
	ctx = ensureContext(ctx)

	var policy models.Policy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", strings.TrimSpace(policyID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if policy.Status != models.PolicyStatusCompleted && policy.Status != models.PolicyStatusArchived {
		return nil, apperrors.ErrForbidden
	}

	return &PolicyResults{
		PolicyID:   policy.ID,
		Title:      policy.Title,
		Status:     policy.Status,
		VotesYes:   policy.VotesYes,
		VotesNo:    policy.VotesNo,
		TotalVotes: policy.VotesYes + policy.VotesNo,
	}, nil
}

func (s *VoteService) broadcast(ctx context.Context, policyID, choice string, votedAt time.Time) {
	if s.hub == nil {
		return
	}

	var policy models.Policy
	if err := s.db.WithContext(ctx).Select("id", "votes_yes", "votes_no").First(&policy, "id = ?", policyID).Error; err != nil {
		s.log.Warn("live tally lookup failed", zap.String("policy_id", policyID), zap.Error(err))
		return
	}

	s.hub.BroadcastStream(realtime.StreamVotes, realtime.Message{
		Event: "vote.cast",
		Data: VoteEvent{
			PolicyID: policyID,
			Choice:   choice,
			VotesYes: policy.VotesYes,
			VotesNo:  policy.VotesNo,
			VotedAt:  votedAt,
		},
	})
}

func policyVotable(policy *models.Policy, now time.Time) bool {
	if policy.Status != models.PolicyStatusActive {
		return false
	}
	if now.Before(policy.VotingStartDate) || now.After(policy.VotingEndDate) {
		return false
	}
	return true
}
