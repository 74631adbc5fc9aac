package service

import (
	"context"
	"encoding/json"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/google/uuid"
)

// fakeStore is an in-memory store with a lock per application row. Mutating
// calls take the row lock for their whole read-validate-write section, like
// SELECT ... FOR UPDATE does, and yield between the read and the write so
// that missing locking shows up as a test failure.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*sync.Mutex
	apps    map[uuid.UUID]domain.Application
	claims  map[uuid.UUID]domain.Claim
	actions []domain.ReviewAction
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:   make(map[uuid.UUID]*sync.Mutex),
		apps:   make(map[uuid.UUID]domain.Application),
		claims: make(map[uuid.UUID]domain.Claim),
	}
}

func (s *fakeStore) seed(app domain.Application) *domain.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if app.ShortCode == "" {
		app.ShortCode = domain.ShortCode(app.ID)
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	s.apps[app.ID] = app
	return &app
}

func (s *fakeStore) lockRow(id uuid.UUID) (func(), bool) {
	s.mu.Lock()
	if _, ok := s.apps[id]; !ok {
		s.mu.Unlock()
		return nil, false
	}
	row, ok := s.rows[id]
	if !ok {
		row = &sync.Mutex{}
		s.rows[id] = row
	}
	s.mu.Unlock()
	row.Lock()
	return row.Unlock, true
}

func (s *fakeStore) app(id uuid.UUID) domain.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id]
}

func (s *fakeStore) put(app domain.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = app
}

func (s *fakeStore) appendAction(appID uuid.UUID, actorID string, action domain.ReviewActionType, reason *string, meta any, at time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	raw, _ := json.Marshal(meta)
	s.actions = append(s.actions, domain.ReviewAction{
		ID: s.nextID, ApplicationID: appID, ActorID: actorID, Action: action, Reason: reason, Meta: raw, CreatedAt: at,
	})
	return s.nextID
}

// ApplicationRepository

func (s *fakeStore) Create(_ context.Context, app *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.apps {
		if a.GuildID == app.GuildID && a.UserID == app.UserID &&
			(a.Status == domain.ApplicationStatusDraft || a.Status.IsOpen()) {
			return domain.ErrOpenApplication
		}
	}
	s.apps[app.ID] = *app
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s *fakeStore) FindByShortCode(_ context.Context, guildID, code string) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []domain.Application
	for _, a := range s.apps {
		if a.GuildID == guildID && strings.EqualFold(a.ShortCode, code) {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return &found[0], nil
	}
	return nil, domain.ErrAmbiguousShortCode
}

func (s *fakeStore) FindPendingByUser(_ context.Context, guildID, userID string) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.apps {
		if a.GuildID == guildID && a.UserID == userID && a.Status.IsOpen() {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) ListOpenByGuild(_ context.Context, guildID string) ([]domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Application
	for _, a := range s.apps {
		if a.GuildID != guildID || !a.Status.IsOpen() {
			continue
		}
		if c, ok := s.claims[a.ID]; ok {
			c := c
			a.Claim = &c
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) LatestDecidedByUser(_ context.Context, guildID, userID string) (*domain.Application, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Application
	blocked := false
	for _, a := range s.apps {
		if a.GuildID != guildID || a.UserID != userID {
			continue
		}
		if a.PermanentlyRejected {
			blocked = true
		}
		if a.Status == domain.ApplicationStatusDraft {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			a := a
			latest = &a
		}
	}
	return latest, blocked, nil
}

func (s *fakeStore) Submit(_ context.Context, id uuid.UUID, actorID string, at time.Time) (*domain.ReviewAction, error) {
	unlock, ok := s.lockRow(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	defer unlock()

	app := s.app(id)
	if app.Status != domain.ApplicationStatusDraft && app.Status != domain.ApplicationStatusNeedsInfo {
		return nil, domain.ErrNotSubmittable
	}
	from := app.Status
	runtime.Gosched()
	app.Status = domain.ApplicationStatusSubmitted
	app.SubmittedAt = &at
	s.put(app)
	actionID := s.appendAction(id, actorID, domain.ReviewActionSubmit, nil, map[string]string{"from": string(from)}, at)
	return &domain.ReviewAction{ID: actionID, ApplicationID: id, ActorID: actorID, Action: domain.ReviewActionSubmit, CreatedAt: at}, nil
}

// ClaimRepository

func (s *fakeStore) Claim(_ context.Context, appID uuid.UUID, reviewerID string, at time.Time) (domain.ClaimOutcome, error) {
	unlock, ok := s.lockRow(appID)
	if !ok {
		return domain.ClaimAppNotFound, nil
	}
	defer unlock()

	if !s.app(appID).Status.IsOpen() {
		return domain.ClaimInvalidStatus, nil
	}
	s.mu.Lock()
	_, taken := s.claims[appID]
	s.mu.Unlock()
	if taken {
		return domain.ClaimAlreadyClaimed, nil
	}
	runtime.Gosched()

	s.mu.Lock()
	s.claims[appID] = domain.Claim{ApplicationID: appID, ReviewerID: reviewerID, ClaimedAt: at}
	s.mu.Unlock()
	s.appendAction(appID, reviewerID, domain.ReviewActionClaim, nil, nil, at)
	return domain.ClaimOK, nil
}

func (s *fakeStore) Unclaim(_ context.Context, appID uuid.UUID, reviewerID string) (domain.ClaimOutcome, error) {
	unlock, ok := s.lockRow(appID)
	if !ok {
		return domain.ClaimAppNotFound, nil
	}
	defer unlock()

	s.mu.Lock()
	c, exists := s.claims[appID]
	s.mu.Unlock()
	if !exists {
		return domain.ClaimNotClaimed, nil
	}
	if c.ReviewerID != reviewerID {
		return domain.ClaimNotOwner, nil
	}
	s.mu.Lock()
	delete(s.claims, appID)
	s.mu.Unlock()
	s.appendAction(appID, reviewerID, domain.ReviewActionUnclaim, nil, nil, time.Now().UTC())
	return domain.ClaimOK, nil
}

func (s *fakeStore) GetClaim(_ context.Context, appID uuid.UUID) (*domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[appID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *fakeStore) ReleaseStale(_ context.Context, cutoff time.Time) ([]domain.Claim, error) {
	s.mu.Lock()
	var stale []domain.Claim
	for id, c := range s.claims {
		a := s.apps[id]
		if c.ClaimedAt.Before(cutoff) && a.Status.IsOpen() {
			c.GuildID = a.GuildID
			stale = append(stale, c)
			delete(s.claims, id)
		}
	}
	s.mu.Unlock()
	for _, c := range stale {
		s.appendAction(c.ApplicationID, domain.SystemActorID, domain.ReviewActionClaimExpired, nil,
			map[string]any{"reviewer_id": c.ReviewerID}, time.Now().UTC())
	}
	return stale, nil
}

// DecisionRepository

func (s *fakeStore) Decide(_ context.Context, d domain.Decision) (domain.DecisionResult, error) {
	if err := d.Validate(); err != nil {
		return domain.DecisionResult{}, err
	}
	unlock, ok := s.lockRow(d.ApplicationID)
	if !ok {
		return domain.DecisionResult{Kind: domain.DecisionNotFound}, nil
	}
	defer unlock()

	app := s.app(d.ApplicationID)
	if kind := d.Evaluate(app.Status); kind != domain.DecisionOK {
		return domain.DecisionResult{Kind: kind, Status: app.Status}, nil
	}
	runtime.Gosched()

	from := app.Status
	app.Status = d.Target()
	if d.IsTerminal() {
		at := d.At
		app.DecidedAt = &at
	}
	if d.Action == domain.ReviewActionPermanentReject {
		at := d.At
		app.PermanentlyRejected = true
		app.PermanentRejectAt = &at
	}
	s.put(app)
	claim, _ := s.GetClaim(context.Background(), d.ApplicationID)
	id := s.appendAction(d.ApplicationID, d.ActorID, d.Action, d.Reason,
		map[string]string{"from": string(from), "to": string(app.Status)}, d.At)
	return domain.DecisionResult{Kind: domain.DecisionOK, ReviewActionID: id, Status: app.Status, Claim: claim}, nil
}

func (s *fakeStore) Unblock(_ context.Context, appID uuid.UUID, actorID string, reason *string, at time.Time) (domain.UnblockOutcome, int64, error) {
	unlock, ok := s.lockRow(appID)
	if !ok {
		return domain.UnblockNotFound, 0, nil
	}
	defer unlock()

	app := s.app(appID)
	if !app.PermanentlyRejected {
		return domain.UnblockNotBlocked, 0, nil
	}
	app.PermanentlyRejected = false
	app.PermanentRejectAt = nil
	s.put(app)
	id := s.appendAction(appID, actorID, domain.ReviewActionUnblock, reason, nil, at)
	return domain.UnblockOK, id, nil
}

// ReviewActionRepository

func (s *fakeStore) ListByApplication(_ context.Context, appID uuid.UUID) ([]domain.ReviewAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReviewAction
	for _, a := range s.actions {
		if a.ApplicationID == appID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) CountByAction(_ context.Context, appID uuid.UUID, action domain.ReviewActionType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.actions {
		if a.ApplicationID == appID && a.Action == action {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) claimCount(appID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[appID]; ok {
		return 1
	}
	return 0
}
