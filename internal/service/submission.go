package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository"
)

// ReapplyBlockedError reports why Open refused a new application.
type ReapplyBlockedError struct {
	Decision domain.ReapplyDecision
}

func (e *ReapplyBlockedError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrReapplyBlocked, e.Decision.Reason)
}

func (e *ReapplyBlockedError) Unwrap() error { return domain.ErrReapplyBlocked }

type submissionService struct {
	resolver      Resolver
	appRepo       repository.ApplicationRepository
	policy        ReapplicationPolicy
	cooldownHours int
	hooks         Hooks
	now           func() time.Time
}

func NewSubmissionService(
	resolver Resolver,
	appRepo repository.ApplicationRepository,
	policy ReapplicationPolicy,
	cooldownHours int,
	hooks Hooks,
) SubmissionService {
	return &submissionService{
		resolver:      resolver,
		appRepo:       appRepo,
		policy:        policy,
		cooldownHours: cooldownHours,
		hooks:         hooks,
		now:           time.Now,
	}
}

func (s *submissionService) Open(ctx context.Context, guildID, userID string) (*domain.Application, error) {
	verdict, err := s.policy.CanReapply(ctx, guildID, userID, s.cooldownHours)
	if err != nil {
		return nil, err
	}
	if !verdict.Allowed {
		if verdict.Reason == domain.ReapplyBlockedPending {
			return nil, domain.ErrOpenApplication
		}
		return nil, &ReapplyBlockedError{Decision: verdict}
	}

	app := domain.NewApplication(guildID, userID, s.now())
	if err := s.appRepo.Create(ctx, app); err != nil {
		if !errors.Is(err, domain.ErrOpenApplication) {
			s.hooks.storageFault(ctx, "create_application", err, "guild_id", guildID, "user_id", userID)
		}
		return nil, err
	}
	s.hooks.invalidate(ctx, guildID)

	logger.InfoContext(ctx, "Application opened", "application_id", app.ID, "guild_id", guildID, "user_id", userID)
	return app, nil
}

// Submit moves the applicant's own draft (or needs_info application) to submitted.
func (s *submissionService) Submit(ctx context.Context, guildID, ref, userID string) (*domain.Application, error) {
	app, err := s.resolver.Resolve(ctx, guildID, ref)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, domain.ErrNotFound
	}

	at := s.now().UTC()
	action, err := s.appRepo.Submit(ctx, app.ID, userID, at)
	if errors.Is(err, domain.ErrNotSubmittable) {
		return nil, err
	}
	if err != nil {
		s.hooks.storageFault(ctx, "submit", err, "application_id", app.ID, "guild_id", guildID, "user_id", userID)
		return nil, err
	}

	app.Status = domain.ApplicationStatusSubmitted
	app.SubmittedAt = &at
	s.hooks.invalidate(ctx, guildID)
	s.hooks.publish(ctx, domain.StatusChange{
		ApplicationID:  app.ID,
		GuildID:        app.GuildID,
		UserID:         app.UserID,
		Status:         app.Status,
		Action:         domain.ReviewActionSubmit,
		ActorID:        userID,
		ReviewActionID: action.ID,
		OccurredAt:     at,
	})

	logger.InfoContext(ctx, "Application submitted", "application_id", app.ID, "guild_id", guildID)
	return app, nil
}
