package http

import (
	"context"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockClaimService struct {
	mock.Mock
}

func (m *MockClaimService) Claim(ctx context.Context, guildID, ref, reviewerID string) (domain.ClaimOutcome, error) {
	args := m.Called(ctx, guildID, ref, reviewerID)
	return args.Get(0).(domain.ClaimOutcome), args.Error(1)
}
func (m *MockClaimService) Unclaim(ctx context.Context, guildID, ref, reviewerID string) (domain.ClaimOutcome, error) {
	args := m.Called(ctx, guildID, ref, reviewerID)
	return args.Get(0).(domain.ClaimOutcome), args.Error(1)
}
func (m *MockClaimService) GetClaim(ctx context.Context, guildID, ref string) (*domain.Claim, error) {
	args := m.Called(ctx, guildID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

type MockDecisionService struct {
	mock.Mock
}

func (m *MockDecisionService) Approve(ctx context.Context, cmd service.DecisionCommand) (service.DecisionReply, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.DecisionReply), args.Error(1)
}
func (m *MockDecisionService) Reject(ctx context.Context, cmd service.DecisionCommand, permanent bool) (service.DecisionReply, error) {
	args := m.Called(ctx, cmd, permanent)
	return args.Get(0).(service.DecisionReply), args.Error(1)
}
func (m *MockDecisionService) Kick(ctx context.Context, cmd service.DecisionCommand) (service.DecisionReply, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.DecisionReply), args.Error(1)
}
func (m *MockDecisionService) RequestInfo(ctx context.Context, cmd service.DecisionCommand) (service.DecisionReply, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.DecisionReply), args.Error(1)
}
func (m *MockDecisionService) Unblock(ctx context.Context, cmd service.DecisionCommand) (domain.UnblockOutcome, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(domain.UnblockOutcome), args.Error(1)
}

type MockPolicy struct {
	mock.Mock
}

func (m *MockPolicy) CanReapply(ctx context.Context, guildID, userID string, cooldownHours int) (domain.ReapplyDecision, error) {
	args := m.Called(ctx, guildID, userID, cooldownHours)
	return args.Get(0).(domain.ReapplyDecision), args.Error(1)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Open(ctx context.Context, guildID, userID string) (*domain.Application, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockSubmissionService) Submit(ctx context.Context, guildID, ref, userID string) (*domain.Application, error) {
	args := m.Called(ctx, guildID, ref, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

type MockQueueService struct {
	mock.Mock
}

func (m *MockQueueService) ListOpen(ctx context.Context, guildID string) ([]domain.Application, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Application), args.Error(1)
}
func (m *MockQueueService) Get(ctx context.Context, guildID, ref string) (*domain.Application, error) {
	args := m.Called(ctx, guildID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockQueueService) ListActions(ctx context.Context, guildID, ref string) ([]domain.ReviewAction, error) {
	args := m.Called(ctx, guildID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewAction), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
