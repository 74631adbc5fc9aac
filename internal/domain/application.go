package domain

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "draft"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
	ApplicationStatusNeedsInfo ApplicationStatus = "needs_info"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusKicked    ApplicationStatus = "kicked"
)

// IsTerminal reports whether no further decision can be made on the application.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusKicked:
		return true
	}
	return false
}

// IsOpen reports whether the application is waiting on a moderator.
func (s ApplicationStatus) IsOpen() bool {
	return s == ApplicationStatusSubmitted || s == ApplicationStatusNeedsInfo
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusDraft, ApplicationStatusSubmitted, ApplicationStatusNeedsInfo,
		ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusKicked:
		return true
	}
	return false
}

// Application is one applicant's join request in a guild.
type Application struct {
	ID                  uuid.UUID         `json:"id"`
	ShortCode           string            `json:"short_code"`
	GuildID             string            `json:"guild_id"`
	UserID              string            `json:"user_id"`
	Status              ApplicationStatus `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	SubmittedAt         *time.Time        `json:"submitted_at,omitempty"`
	DecidedAt           *time.Time        `json:"decided_at,omitempty"`
	PermanentlyRejected bool              `json:"permanently_rejected"`
	PermanentRejectAt   *time.Time        `json:"permanent_reject_at,omitempty"`
	Claim               *Claim            `json:"claim,omitempty"` // Populated by list queries
}

// BelongsTo guards cross-guild access; a mismatch is reported as not found.
func (a *Application) BelongsTo(guildID string) bool {
	return a != nil && a.GuildID == guildID
}

// NewApplication builds a draft application with a fresh id and its derived short code.
func NewApplication(guildID, userID string, now time.Time) *Application {
	id := uuid.New()
	return &Application{
		ID:        id,
		ShortCode: ShortCode(id),
		GuildID:   guildID,
		UserID:    userID,
		Status:    ApplicationStatusDraft,
		CreatedAt: now.UTC(),
	}
}

// Claim marks an application as being handled by one reviewer.
type Claim struct {
	ApplicationID uuid.UUID `json:"application_id"`
	GuildID       string    `json:"guild_id,omitempty"` // Set by the stale-claim sweep only
	ReviewerID    string    `json:"reviewer_id"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

// Clone returns a copy that shares no pointers with a.
func (a Application) Clone() Application {
	out := a
	out.SubmittedAt = cloneTime(a.SubmittedAt)
	out.DecidedAt = cloneTime(a.DecidedAt)
	out.PermanentRejectAt = cloneTime(a.PermanentRejectAt)
	if a.Claim != nil {
		c := *a.Claim
		out.Claim = &c
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
