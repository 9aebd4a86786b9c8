package audiences

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rhonaldomaster/gshop-recsys/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateAudience(w http.ResponseWriter, r *http.Request) {
	var dto CreateAudienceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	audience, err := h.service.CreateAudience(r.Context(), &dto)
	if err != nil {
		if errors.Is(err, ErrInvalidRules) || errors.Is(err, ErrSourceAudienceNotFound) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create audience")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, audience)
}

func (h *Handler) GetAudience(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	audience, err := h.service.GetAudience(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAudienceNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get audience")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, audience)
}

func (h *Handler) ListAudiences(w http.ResponseWriter, r *http.Request) {
	sellerID := r.URL.Query().Get("sellerId")
	if sellerID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "sellerId is required")
		return
	}

	audiences, err := h.service.ListAudiences(r.Context(), sellerID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list audiences")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, audiences)
}

func (h *Handler) UpdateAudience(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var dto UpdateAudienceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	audience, err := h.service.UpdateAudience(r.Context(), id, &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrAudienceNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidRules), errors.Is(err, ErrSourceAudienceNotFound):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update audience")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, audience)
}

func (h *Handler) DeleteAudience(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteAudience(r.Context(), id); err != nil {
		if errors.Is(err, ErrAudienceNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete audience")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) RebuildAudience(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	audience, err := h.service.RebuildAudience(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAudienceNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to rebuild audience")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, audience)
}

func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	members, err := h.service.GetMembers(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAudienceNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get members")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, members)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var dto AddMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.AddMember(r.Context(), id, dto.UserID); err != nil {
		if errors.Is(err, ErrAudienceNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add member")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]bool{"added": true})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.service.RemoveMember(r.Context(), vars["id"], vars["userId"]); err != nil {
		if errors.Is(err, ErrAudienceNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to remove member")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"removed": true})
}
