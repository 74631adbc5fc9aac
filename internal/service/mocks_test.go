package service

import (
	"context"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockApplicationRepo
type MockApplicationRepo struct {
	mock.Mock
}

func (m *MockApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}
func (m *MockApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) FindByShortCode(ctx context.Context, guildID, code string) (*domain.Application, error) {
	args := m.Called(ctx, guildID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) FindPendingByUser(ctx context.Context, guildID, userID string) (*domain.Application, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) ListOpenByGuild(ctx context.Context, guildID string) ([]domain.Application, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) LatestDecidedByUser(ctx context.Context, guildID, userID string) (*domain.Application, bool, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Application), args.Bool(1), args.Error(2)
}
func (m *MockApplicationRepo) Submit(ctx context.Context, id uuid.UUID, actorID string, at time.Time) (*domain.ReviewAction, error) {
	args := m.Called(ctx, id, actorID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewAction), args.Error(1)
}

// MockDecisionRepo
type MockDecisionRepo struct {
	mock.Mock
}

func (m *MockDecisionRepo) Decide(ctx context.Context, d domain.Decision) (domain.DecisionResult, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(domain.DecisionResult), args.Error(1)
}
func (m *MockDecisionRepo) Unblock(ctx context.Context, appID uuid.UUID, actorID string, reason *string, at time.Time) (domain.UnblockOutcome, int64, error) {
	args := m.Called(ctx, appID, actorID, reason, at)
	return args.Get(0).(domain.UnblockOutcome), args.Get(1).(int64), args.Error(2)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishStatusChange(ctx context.Context, change domain.StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

// MockCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, guildID string) ([]domain.Application, uint64, bool, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]domain.Application), args.Get(1).(uint64), args.Bool(2), args.Error(3)
}
func (m *MockCache) Set(ctx context.Context, guildID string, version uint64, apps []domain.Application) error {
	args := m.Called(ctx, guildID, version, apps)
	return args.Error(0)
}
func (m *MockCache) Invalidate(ctx context.Context, guildID string) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}
