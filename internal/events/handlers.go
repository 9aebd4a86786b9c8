package events

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

func (h *Handler) TrackInteraction(w http.ResponseWriter, r *http.Request) {
	var dto TrackInteractionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.TrackInteraction(r.Context(), &dto)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to track interaction")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, event)
}

func (h *Handler) TrackInteractionsBulk(w http.ResponseWriter, r *http.Request) {
	var dto TrackInteractionsBulkDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	tracked, err := h.service.TrackInteractionsBulk(r.Context(), &dto)
	if err != nil {
		if errors.Is(err, ErrBatchTooLarge) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to track interactions")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]int{"tracked": tracked})
}

func (h *Handler) GetUserInteractions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	interactions, err := h.service.GetUserInteractions(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get interactions")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, interactions)
}

func (h *Handler) GetUserPreferences(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	preferences, err := h.service.GetUserPreferences(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get preferences")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, preferences)
}

func (h *Handler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var dto UpdatePreferenceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdatePreference(r.Context(), userID, &dto); err != nil {
		if errors.Is(err, ErrInvalidStrength) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update preference")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
