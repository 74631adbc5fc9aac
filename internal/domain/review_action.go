package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReviewActionType tags an audit row. Tags are append-only: never rename or remove one.
type ReviewActionType string

const (
	ReviewActionSubmit          ReviewActionType = "submit"
	ReviewActionClaim           ReviewActionType = "claim"
	ReviewActionUnclaim         ReviewActionType = "unclaim"
	ReviewActionClaimExpired    ReviewActionType = "claim_expired"
	ReviewActionApprove         ReviewActionType = "approve"
	ReviewActionReject          ReviewActionType = "reject"
	ReviewActionPermanentReject ReviewActionType = "permanent_reject"
	ReviewActionKick            ReviewActionType = "kick"
	ReviewActionNeedsInfo       ReviewActionType = "needs_info"
	ReviewActionUnblock         ReviewActionType = "unblock"
)

// SystemActorID is recorded for actions taken by scheduled jobs.
const SystemActorID = "system"

// ReviewAction is one row of the append-only audit log.
type ReviewAction struct {
	ID            int64            `json:"id"`
	ApplicationID uuid.UUID        `json:"application_id"`
	ActorID       string           `json:"actor_id"`
	Action        ReviewActionType `json:"action"`
	Reason        *string          `json:"reason,omitempty"`
	Meta          json.RawMessage  `json:"meta,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// StatusChange is the committed fact handed to notification collaborators.
type StatusChange struct {
	ApplicationID  uuid.UUID         `json:"application_id"`
	GuildID        string            `json:"guild_id"`
	UserID         string            `json:"user_id"`
	Status         ApplicationStatus `json:"status"`
	Action         ReviewActionType  `json:"action"`
	ActorID        string            `json:"actor_id"`
	Reason         string            `json:"reason,omitempty"`
	ReviewActionID int64             `json:"review_action_id"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// OptionalReason maps a blank reason to NULL.
func OptionalReason(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}
