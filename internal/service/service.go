package service

import (
	"context"
	"time"

	"gatekeeper-backend/internal/domain"
)

// Resolver turns a moderator-typed reference (UUID or short code) into an
// application of the requesting guild.
type Resolver interface {
	Resolve(ctx context.Context, guildID, ref string) (*domain.Application, error)
	PendingForUser(ctx context.Context, guildID, userID string) (*domain.Application, error)
}

type ClaimService interface {
	Claim(ctx context.Context, guildID, ref, reviewerID string) (domain.ClaimOutcome, error)
	Unclaim(ctx context.Context, guildID, ref, reviewerID string) (domain.ClaimOutcome, error)
	GetClaim(ctx context.Context, guildID, ref string) (*domain.Claim, error)
}

// DecisionCommand is one moderator decision request from the command layer.
type DecisionCommand struct {
	GuildID string
	Ref     string
	ActorID string
	Reason  string
}

// DecisionReply carries the committed result plus an advisory warning when
// another moderator holds the claim.
type DecisionReply struct {
	domain.DecisionResult
	ApplicationID string `json:"application_id,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

type DecisionService interface {
	Approve(ctx context.Context, cmd DecisionCommand) (DecisionReply, error)
	Reject(ctx context.Context, cmd DecisionCommand, permanent bool) (DecisionReply, error)
	Kick(ctx context.Context, cmd DecisionCommand) (DecisionReply, error)
	RequestInfo(ctx context.Context, cmd DecisionCommand) (DecisionReply, error)
	Unblock(ctx context.Context, cmd DecisionCommand) (domain.UnblockOutcome, error)
}

type ReapplicationPolicy interface {
	CanReapply(ctx context.Context, guildID, userID string, cooldownHours int) (domain.ReapplyDecision, error)
}

type SubmissionService interface {
	Open(ctx context.Context, guildID, userID string) (*domain.Application, error)
	Submit(ctx context.Context, guildID, ref, userID string) (*domain.Application, error)
}

type QueueService interface {
	ListOpen(ctx context.Context, guildID string) ([]domain.Application, error)
	Get(ctx context.Context, guildID, ref string) (*domain.Application, error)
	ListActions(ctx context.Context, guildID, ref string) ([]domain.ReviewAction, error)
}

// MaintenanceService runs the scheduled housekeeping on review state.
type MaintenanceService interface {
	ReleaseStaleClaims(ctx context.Context, ttl time.Duration) ([]domain.Claim, error)
}
