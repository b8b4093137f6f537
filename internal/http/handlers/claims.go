package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coverwise/marketcore/internal/core"
	"github.com/coverwise/marketcore/pkg/problem"
)

type ClaimHandler struct {
	Svc core.ClaimService
	Log *slog.Logger
}

func NewClaimHandler(svc core.ClaimService, log *slog.Logger) *ClaimHandler {
	return &ClaimHandler{Svc: svc, Log: log}
}

func (h *ClaimHandler) Mount(r chi.Router) {
	r.Route("/claims", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/", h.List)
		r.Get("/{claim_id}", h.Get)
		r.Post("/{claim_id}:transition", h.Transition)
		r.Post("/{claim_id}/flags/{flag_index}:resolve", h.ResolveFlag)
	})
}

// Submit files a new claim. Fraud rules run synchronously, so the response
// already carries any flags.
// 201: JSON; 400: bad JSON/validation; 404: unknown policy or user; 503: store down.
func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in core.ClaimInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid JSON", "Body could not be decoded.")
		return
	}

	claim, err := h.Svc.Submit(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(claim); err != nil {
		h.Log.Error("failed to encode claim", "err", err)
	}
}

// Get retrieves a claim by ID.
// 200: JSON; 400: missing ID; 404: not found; 500: internal error.
func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "claim_id")
	if id == "" {
		problem.Write(w, http.StatusBadRequest, "Missing Claim ID", "Path parameter claim_id is required.")
		return
	}

	claim, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to get claim")
		return
	}

	if err := json.NewEncoder(w).Encode(claim); err != nil {
		h.Log.Error("failed to encode claim", "claim_id", id, "err", err)
	}
}

// List returns claims filtered by user_id or status.
// 200: JSON; 400: missing or invalid filter; 500: internal error.
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	status := r.URL.Query().Get("status")
	limit := parseLimit(r.URL.Query().Get("limit"))

	var (
		claims []core.Claim
		err    error
	)
	switch {
	case userID != "":
		claims, err = h.Svc.ListByUser(r.Context(), userID, limit)
	case status != "":
		s := core.ClaimStatus(status)
		switch s {
		case core.ClaimStatusSubmitted, core.ClaimStatusUnderReview, core.ClaimStatusApproved, core.ClaimStatusRejected:
		default:
			problem.Write(w, http.StatusBadRequest, "Invalid Status", "Unknown claim status: "+status)
			return
		}
		claims, err = h.Svc.FindByStatus(r.Context(), s, limit)
	default:
		problem.Write(w, http.StatusBadRequest, "Missing Filter", "Query parameter user_id or status is required.")
		return
	}
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to list claims")
		return
	}

	if claims == nil {
		claims = []core.Claim{}
	}
	if err := json.NewEncoder(w).Encode(claims); err != nil {
		h.Log.Error("failed to encode claims", "err", err)
	}
}

type transitionRequest struct {
	Action         string   `json:"action"`
	Reason         string   `json:"reason,omitempty"`
	ApprovedAmount *float64 `json:"approved_amount,omitempty"`
}

type transitionResponse struct {
	Claim core.Claim      `json:"claim"`
	Audit core.AuditEntry `json:"audit"`
}

// Transition drives one lifecycle transition on a claim.
// 200: JSON; 400: bad JSON/validation; 404: not found; 409: invalid transition;
// 422: reject without reason; 500: internal error.
func (h *ClaimHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "claim_id")
	if id == "" {
		problem.Write(w, http.StatusBadRequest, "Missing Claim ID", "Path parameter claim_id is required.")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid JSON", "Body could not be decoded.")
		return
	}

	in := core.TransitionInput{
		Action:         core.ClaimAction(req.Action),
		Actor:          actorFromHeaders(r),
		Reason:         req.Reason,
		ApprovedAmount: req.ApprovedAmount,
	}

	claim, entry, err := h.Svc.Transition(r.Context(), id, in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, err.Error())
		return
	}

	resp := transitionResponse{Claim: claim, Audit: entry}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.Error("failed to encode transition", "claim_id", id, "err", err)
	}
}

type resolveFlagRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ResolveFlag marks a fraud flag as reviewed.
// 200: JSON; 400: bad index; 404: not found; 409: already resolved; 500: internal error.
func (h *ClaimHandler) ResolveFlag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "claim_id")
	if id == "" {
		problem.Write(w, http.StatusBadRequest, "Missing Claim ID", "Path parameter claim_id is required.")
		return
	}
	flagIndex, err := strconv.Atoi(chi.URLParam(r, "flag_index"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid Flag Index", "Path parameter flag_index must be an integer.")
		return
	}

	var req resolveFlagRequest
	if r.Body != nil {
		// Body is optional; a bare resolve carries no reason.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	claim, err := h.Svc.ResolveFlag(r.Context(), id, flagIndex, actorFromHeaders(r), req.Reason)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, err.Error())
		return
	}

	if err := json.NewEncoder(w).Encode(claim); err != nil {
		h.Log.Error("failed to encode claim", "claim_id", id, "err", err)
	}
}

// actorFromHeaders reads the acting identity set by the gateway. Role
// defaults to user so an unannotated request can never drive review actions.
func actorFromHeaders(r *http.Request) core.Actor {
	actor := core.Actor{
		ID:   r.Header.Get("X-Actor-ID"),
		Role: core.RoleUser,
	}
	switch core.ActorRole(r.Header.Get("X-Actor-Role")) {
	case core.RoleReviewer:
		actor.Role = core.RoleReviewer
	case core.RoleAdmin:
		actor.Role = core.RoleAdmin
	case core.RoleSystem:
		actor.Role = core.RoleSystem
	}
	return actor
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
