package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"
)

type decisionService struct {
	resolver     Resolver
	decisionRepo repository.DecisionRepository
	hooks        Hooks
	now          func() time.Time
}

func NewDecisionService(
	resolver Resolver,
	decisionRepo repository.DecisionRepository,
	hooks Hooks,
) DecisionService {
	return &decisionService{
		resolver:     resolver,
		decisionRepo: decisionRepo,
		hooks:        hooks,
		now:          time.Now,
	}
}

func (s *decisionService) Approve(ctx context.Context, cmd DecisionCommand) (DecisionReply, error) {
	return s.decide(ctx, cmd, domain.ReviewActionApprove, false)
}

func (s *decisionService) Reject(ctx context.Context, cmd DecisionCommand, permanent bool) (DecisionReply, error) {
	action := domain.ReviewActionReject
	if permanent {
		action = domain.ReviewActionPermanentReject
	}
	return s.decide(ctx, cmd, action, true)
}

func (s *decisionService) Kick(ctx context.Context, cmd DecisionCommand) (DecisionReply, error) {
	return s.decide(ctx, cmd, domain.ReviewActionKick, false)
}

func (s *decisionService) RequestInfo(ctx context.Context, cmd DecisionCommand) (DecisionReply, error) {
	return s.decide(ctx, cmd, domain.ReviewActionNeedsInfo, true)
}

func (s *decisionService) decide(ctx context.Context, cmd DecisionCommand, action domain.ReviewActionType, reasonRequired bool) (DecisionReply, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reasonRequired && reason == "" {
		return DecisionReply{}, domain.ErrReasonRequired
	}
	if cmd.ActorID == "" {
		return DecisionReply{}, domain.ErrMalformedID
	}

	app, err := s.resolver.Resolve(ctx, cmd.GuildID, cmd.Ref)
	if errors.Is(err, domain.ErrNotFound) {
		s.hooks.Metrics.ObserveDecision(string(action), string(domain.DecisionNotFound))
		return DecisionReply{DecisionResult: domain.DecisionResult{Kind: domain.DecisionNotFound}}, nil
	}
	if err != nil {
		s.hooks.storageFault(ctx, "resolve", err, "guild_id", cmd.GuildID, "ref", cmd.Ref)
		return DecisionReply{}, err
	}

	result, err := s.decisionRepo.Decide(ctx, domain.Decision{
		ApplicationID: app.ID,
		ActorID:       cmd.ActorID,
		Action:        action,
		Reason:        domain.OptionalReason(reason),
		At:            s.now().UTC(),
	})
	if err != nil {
		s.hooks.storageFault(ctx, "decide", err,
			"application_id", app.ID, "guild_id", cmd.GuildID, "actor_id", cmd.ActorID, "action", action)
		return DecisionReply{}, fmt.Errorf("failed to commit decision: %w", err)
	}
	s.hooks.Metrics.ObserveDecision(string(action), string(result.Kind))

	reply := DecisionReply{DecisionResult: result, ApplicationID: app.ID.String()}
	if result.Kind == domain.DecisionOK {
		// Claims never gate decisions; a foreign claim only produces a warning.
		reply.Warning = GuardAgainstOtherOwner(result.Claim, cmd.ActorID)
		s.hooks.invalidate(ctx, cmd.GuildID)
		s.hooks.publish(ctx, domain.StatusChange{
			ApplicationID:  app.ID,
			GuildID:        app.GuildID,
			UserID:         app.UserID,
			Status:         result.Status,
			Action:         action,
			ActorID:        cmd.ActorID,
			Reason:         reason,
			ReviewActionID: result.ReviewActionID,
			OccurredAt:     s.now().UTC(),
		})
	}

	logger.InfoContext(ctx, "Decision processed",
		"application_id", app.ID, "actor_id", cmd.ActorID, "action", action, "kind", result.Kind)
	return reply, nil
}

func (s *decisionService) Unblock(ctx context.Context, cmd DecisionCommand) (domain.UnblockOutcome, error) {
	if cmd.ActorID == "" {
		return "", domain.ErrMalformedID
	}
	app, err := s.resolver.Resolve(ctx, cmd.GuildID, cmd.Ref)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UnblockNotFound, nil
	}
	if err != nil {
		s.hooks.storageFault(ctx, "resolve", err, "guild_id", cmd.GuildID, "ref", cmd.Ref)
		return "", err
	}

	reason := strings.TrimSpace(cmd.Reason)
	outcome, actionID, err := s.decisionRepo.Unblock(ctx, app.ID, cmd.ActorID, domain.OptionalReason(reason), s.now().UTC())
	if err != nil {
		s.hooks.storageFault(ctx, "unblock", err, "application_id", app.ID, "guild_id", cmd.GuildID, "actor_id", cmd.ActorID)
		return "", fmt.Errorf("failed to unblock application: %w", err)
	}
	s.hooks.Metrics.ObserveDecision(string(domain.ReviewActionUnblock), string(outcome))

	if outcome == domain.UnblockOK {
		s.hooks.invalidate(ctx, cmd.GuildID)
		s.hooks.publish(ctx, domain.StatusChange{
			ApplicationID:  app.ID,
			GuildID:        app.GuildID,
			UserID:         app.UserID,
			Status:         app.Status,
			Action:         domain.ReviewActionUnblock,
			ActorID:        cmd.ActorID,
			Reason:         reason,
			ReviewActionID: actionID,
			OccurredAt:     s.now().UTC(),
		})
	}

	logger.InfoContext(ctx, "Unblock processed", "application_id", app.ID, "actor_id", cmd.ActorID, "outcome", outcome)
	return outcome, nil
}
