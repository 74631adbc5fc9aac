package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/service"

	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReviewHandler serves the moderator command API and the applicant endpoints.
type ReviewHandler struct {
	claims               service.ClaimService
	decisions            service.DecisionService
	policy               service.ReapplicationPolicy
	submissions          service.SubmissionService
	queue                service.QueueService
	defaultCooldownHours int
}

func NewReviewHandler(
	claims service.ClaimService,
	decisions service.DecisionService,
	policy service.ReapplicationPolicy,
	submissions service.SubmissionService,
	queue service.QueueService,
	defaultCooldownHours int,
) *ReviewHandler {
	return &ReviewHandler{
		claims:               claims,
		decisions:            decisions,
		policy:               policy,
		submissions:          submissions,
		queue:                queue,
		defaultCooldownHours: defaultCooldownHours,
	}
}

// RegisterRoutes names every route; AuthMiddleware looks the names up in
// config.EndpointSecurityConfig.
func (h *ReviewHandler) RegisterRoutes(router *mux.Router) {
	g := router.PathPrefix("/api/v1/guilds/{guildID}").Subrouter()

	g.HandleFunc("/applications", h.listOpen).Methods(http.MethodGet).Name("list-open-applications")
	g.HandleFunc("/applications", h.open).Methods(http.MethodPost).Name("open-application")
	g.HandleFunc("/applications/{ref}", h.get).Methods(http.MethodGet).Name("get-application")
	g.HandleFunc("/applications/{ref}/actions", h.listActions).Methods(http.MethodGet).Name("list-review-actions")
	g.HandleFunc("/applications/{ref}/submit", h.submit).Methods(http.MethodPost).Name("submit-application")

	g.HandleFunc("/applications/{ref}/claim", h.claim).Methods(http.MethodPost).Name("claim")
	g.HandleFunc("/applications/{ref}/unclaim", h.unclaim).Methods(http.MethodPost).Name("unclaim")
	g.HandleFunc("/applications/{ref}/approve", h.approve).Methods(http.MethodPost).Name("approve")
	g.HandleFunc("/applications/{ref}/reject", h.reject).Methods(http.MethodPost).Name("reject")
	g.HandleFunc("/applications/{ref}/kick", h.kick).Methods(http.MethodPost).Name("kick")
	g.HandleFunc("/applications/{ref}/request-info", h.requestInfo).Methods(http.MethodPost).Name("request-info")
	g.HandleFunc("/applications/{ref}/unblock", h.unblock).Methods(http.MethodPost).Name("unblock")

	g.HandleFunc("/users/{userID}/reapply", h.canReapply).Methods(http.MethodGet).Name("can-reapply")
}

// RegisterOpsRoutes adds the public health and metrics endpoints.
func RegisterOpsRoutes(router *mux.Router, db Pinger, metricsHandler http.Handler) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("healthz")
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet).Name("metrics")
	}
}

type commandRequest struct {
	Reason    string `json:"reason"`
	Permanent bool   `json:"permanent"`
}

type outcomeResponse struct {
	Ref     string `json:"ref"`
	Outcome string `json:"outcome"`
}

type decisionResponse struct {
	Ref     string `json:"ref"`
	Outcome string `json:"outcome"`
	service.DecisionReply
}

func decodeCommand(r *http.Request) (commandRequest, error) {
	var req commandRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	if err != nil {
		return req, errors.Join(domain.ErrInvalidInput, err)
	}
	return req, nil
}

func (h *ReviewHandler) command(w http.ResponseWriter, r *http.Request) (service.DecisionCommand, commandRequest, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return service.DecisionCommand{}, commandRequest{}, false
	}
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return service.DecisionCommand{}, commandRequest{}, false
	}
	vars := mux.Vars(r)
	return service.DecisionCommand{
		GuildID: vars["guildID"],
		Ref:     vars["ref"],
		ActorID: actor.UserID,
		Reason:  req.Reason,
	}, req, true
}

func (h *ReviewHandler) claim(w http.ResponseWriter, r *http.Request) {
	cmd, _, ok := h.command(w, r)
	if !ok {
		return
	}
	outcome, err := h.claims.Claim(r.Context(), cmd.GuildID, cmd.Ref, cmd.ActorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, claimStatus(outcome), outcomeResponse{Ref: cmd.Ref, Outcome: string(outcome)})
}

func (h *ReviewHandler) unclaim(w http.ResponseWriter, r *http.Request) {
	cmd, _, ok := h.command(w, r)
	if !ok {
		return
	}
	outcome, err := h.claims.Unclaim(r.Context(), cmd.GuildID, cmd.Ref, cmd.ActorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, claimStatus(outcome), outcomeResponse{Ref: cmd.Ref, Outcome: string(outcome)})
}

func (h *ReviewHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, cmd service.DecisionCommand, _ commandRequest) (service.DecisionReply, error) {
		return h.decisions.Approve(ctx, cmd)
	})
}

func (h *ReviewHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, cmd service.DecisionCommand, req commandRequest) (service.DecisionReply, error) {
		return h.decisions.Reject(ctx, cmd, req.Permanent)
	})
}

func (h *ReviewHandler) kick(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, cmd service.DecisionCommand, _ commandRequest) (service.DecisionReply, error) {
		return h.decisions.Kick(ctx, cmd)
	})
}

func (h *ReviewHandler) requestInfo(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, cmd service.DecisionCommand, _ commandRequest) (service.DecisionReply, error) {
		return h.decisions.RequestInfo(ctx, cmd)
	})
}

type decideFunc func(ctx context.Context, cmd service.DecisionCommand, req commandRequest) (service.DecisionReply, error)

func (h *ReviewHandler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc) {
	cmd, req, ok := h.command(w, r)
	if !ok {
		return
	}
	reply, err := fn(r.Context(), cmd, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, decisionStatus(reply.Kind), decisionResponse{Ref: cmd.Ref, Outcome: string(reply.Kind), DecisionReply: reply})
}

func (h *ReviewHandler) unblock(w http.ResponseWriter, r *http.Request) {
	cmd, _, ok := h.command(w, r)
	if !ok {
		return
	}
	outcome, err := h.decisions.Unblock(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, unblockStatus(outcome), outcomeResponse{Ref: cmd.Ref, Outcome: string(outcome)})
}

func (h *ReviewHandler) listOpen(w http.ResponseWriter, r *http.Request) {
	apps, err := h.queue.ListOpen(r.Context(), mux.Vars(r)["guildID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *ReviewHandler) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	app, err := h.queue.Get(r.Context(), vars["guildID"], vars["ref"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ReviewHandler) listActions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	actions, err := h.queue.ListActions(r.Context(), vars["guildID"], vars["ref"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if actions == nil {
		actions = []domain.ReviewAction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (h *ReviewHandler) canReapply(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cooldown := h.defaultCooldownHours
	if raw := r.URL.Query().Get("cooldown_hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "cooldown_hours must be an integer")
			return
		}
		cooldown = n
	}
	verdict, err := h.policy.CanReapply(r.Context(), vars["guildID"], vars["userID"], cooldown)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (h *ReviewHandler) open(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	app, err := h.submissions.Open(r.Context(), mux.Vars(r)["guildID"], actor.UserID)
	var blocked *service.ReapplyBlockedError
	if errors.As(err, &blocked) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": err.Error(), "reapply": blocked.Decision})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Info("Application opened over HTTP", "application_id", app.ID, "user_id", actor.UserID)
	writeJSON(w, http.StatusCreated, app)
}

func (h *ReviewHandler) submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	vars := mux.Vars(r)
	app, err := h.submissions.Submit(r.Context(), vars["guildID"], vars["ref"], actor.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
