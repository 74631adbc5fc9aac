package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaimOutcome is the result of claim and unclaim. Every value other than
// ClaimOK is an expected condition reported to the moderator, not a fault.
type ClaimOutcome string

const (
	ClaimOK             ClaimOutcome = "ok"
	ClaimAlreadyClaimed ClaimOutcome = "already_claimed"
	ClaimInvalidStatus  ClaimOutcome = "invalid_status"
	ClaimAppNotFound    ClaimOutcome = "app_not_found"
	ClaimNotClaimed     ClaimOutcome = "not_claimed"
	ClaimNotOwner       ClaimOutcome = "not_owner"
)

// DecisionKind discriminates DecisionResult.
type DecisionKind string

const (
	DecisionOK       DecisionKind = "ok"
	DecisionAlready  DecisionKind = "already"
	DecisionNotFound DecisionKind = "not_found"
	// DecisionInvalidStatus covers transitions out of draft that the state
	// machine does not allow (approve/reject/kick/needs_info on a draft).
	DecisionInvalidStatus DecisionKind = "invalid_status"
)

// DecisionResult is what a decision transaction reports back.
type DecisionResult struct {
	Kind           DecisionKind      `json:"kind"`
	ReviewActionID int64             `json:"review_action_id,omitempty"`
	Status         ApplicationStatus `json:"status,omitempty"`
	// Claim is the claim held when an ok decision committed, read under the
	// same row lock.
	Claim *Claim `json:"-"`
}

type UnblockOutcome string

const (
	UnblockOK         UnblockOutcome = "ok"
	UnblockNotBlocked UnblockOutcome = "not_blocked"
	UnblockNotFound   UnblockOutcome = "app_not_found"
)

// Decision describes one status transition the decision transaction should attempt.
type Decision struct {
	ApplicationID uuid.UUID
	ActorID       string
	Action        ReviewActionType
	Reason        *string
	Meta          []byte
	At            time.Time
}

// Target returns the status the decision moves the application to.
func (d Decision) Target() ApplicationStatus {
	switch d.Action {
	case ReviewActionApprove:
		return ApplicationStatusApproved
	case ReviewActionReject, ReviewActionPermanentReject:
		return ApplicationStatusRejected
	case ReviewActionKick:
		return ApplicationStatusKicked
	case ReviewActionNeedsInfo:
		return ApplicationStatusNeedsInfo
	}
	return ""
}

// Evaluate validates the transition from the current status. It returns
// DecisionOK when the write should proceed.
func (d Decision) Evaluate(current ApplicationStatus) DecisionKind {
	if current.IsTerminal() {
		return DecisionAlready
	}
	switch d.Action {
	case ReviewActionPermanentReject:
		return DecisionOK
	case ReviewActionNeedsInfo:
		switch current {
		case ApplicationStatusSubmitted:
			return DecisionOK
		case ApplicationStatusNeedsInfo:
			return DecisionAlready
		}
		return DecisionInvalidStatus
	case ReviewActionApprove, ReviewActionReject, ReviewActionKick:
		if current.IsOpen() {
			return DecisionOK
		}
		return DecisionInvalidStatus
	}
	return DecisionInvalidStatus
}

// RequiresReason reports whether the action must carry a non-blank reason.
func (d Decision) RequiresReason() bool {
	switch d.Action {
	case ReviewActionReject, ReviewActionPermanentReject, ReviewActionNeedsInfo:
		return true
	}
	return false
}

// Validate rejects decisions that must not open a transaction.
func (d Decision) Validate() error {
	if d.ActorID == "" || d.ApplicationID == uuid.Nil {
		return ErrMalformedID
	}
	if d.Target() == "" {
		return fmt.Errorf("%w: unknown decision action %q", ErrInvalidInput, d.Action)
	}
	if d.RequiresReason() && (d.Reason == nil || strings.TrimSpace(*d.Reason) == "") {
		return ErrReasonRequired
	}
	return nil
}

// IsTerminal reports whether the decision ends the application.
func (d Decision) IsTerminal() bool {
	return d.Target().IsTerminal()
}

// ReapplyDecision is the Reapplication Policy verdict.
type ReapplyDecision struct {
	Allowed      bool       `json:"allowed"`
	Reason       string     `json:"reason,omitempty"`
	RetryAfter   *time.Time `json:"retry_after,omitempty"`
	LastStatus   string     `json:"last_status,omitempty"`
	LastDecision *time.Time `json:"last_decided_at,omitempty"`
}

const (
	ReapplyBlockedPermanent = "permanently_rejected"
	ReapplyBlockedCooldown  = "cooldown"
	ReapplyBlockedPending   = "pending_application"
)
