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

type RecommendationHandler struct {
	Svc core.RecommendationService
	Log *slog.Logger
}

func NewRecommendationHandler(svc core.RecommendationService, log *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{Svc: svc, Log: log}
}

func (h *RecommendationHandler) Mount(r chi.Router) {
	r.Get("/recommendations", h.List)
}

type recommendationsResponse struct {
	UserID          string                      `json:"user_id"`
	Recommendations []core.RecommendationResult `json:"recommendations"`
}

// List ranks catalog policies for a user.
// 200: JSON; 400: bad query params; 404: unknown user; 500: internal error.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		problem.Write(w, http.StatusBadRequest, "Missing User ID", "Query parameter user_id is required.")
		return
	}

	var ov core.RecommendationOverrides
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := core.ParsePolicyType(raw)
		if err != nil {
			writeError(r.Context(), h.Log, w, err, err.Error())
			return
		}
		ov.Type = &t
	}
	if raw := r.URL.Query().Get("budget"); raw != "" {
		budget, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			problem.Write(w, http.StatusBadRequest, "Invalid Budget", "Query parameter budget must be a number.")
			return
		}
		ov.Budget = &budget
	}

	results, err := h.Svc.Recommend(r.Context(), userID, ov)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, err.Error())
		return
	}

	resp := recommendationsResponse{UserID: userID, Recommendations: results}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.Error("failed to encode recommendations", "user_id", userID, "err", err)
	}
}
