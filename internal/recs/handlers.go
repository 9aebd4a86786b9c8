package recs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rhonaldomaster/gshop-recsys/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	var dto GenerateRecommendationsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recommendations, err := h.service.GenerateRecommendations(r.Context(), &dto)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate recommendations")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, recommendations)
}

func (h *Handler) RealtimeRecommendations(w http.ResponseWriter, r *http.Request) {
	var dto RealtimeRecommendationsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recommendations, err := h.service.RealtimeRecommendations(r.Context(), &dto)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate recommendations")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, recommendations)
}

func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	var categoryID *string
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		categoryID = &raw
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	recommendations, err := h.service.GetTrending(r.Context(), categoryID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get trending products")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, recommendations)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := h.service.GetHistory(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get recommendation history")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, history)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get recommendation stats")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	recommendationID := mux.Vars(r)["id"]

	var dto FeedbackDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.RecordFeedback(r.Context(), recommendationID, dto.Event); err != nil {
		if errors.Is(err, ErrRecommendationNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record feedback")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}
