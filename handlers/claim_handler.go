package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/match-score/middleware"
	"github.com/Dosada05/match-score/services"
)

type ClaimHandler struct {
	claimService services.ClaimService
}

func NewClaimHandler(cs services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: cs}
}

type playerClaimRequest struct {
	PlayerID int `json:"player_id"`
}

type resolveClaimRequest struct {
	Approved *bool `json:"approved"`
}

// CreatePlayerClaim godoc
// @Summary Заявка на привязку профиля игрока
// @Tags claims
// @Accept json
// @Produce json
// @Param input body playerClaimRequest true "ID профиля игрока"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Профиль или пользователь уже привязан, либо заявка уже есть"
// @Security BearerAuth
// @Router /claims/player [post]
func (h *ClaimHandler) CreatePlayerClaim(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var req playerClaimRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.PlayerID <= 0 {
		badRequestResponse(w, r, errors.New("player_id is required"))
		return
	}

	claim, err := h.claimService.CreatePlayerClaim(r.Context(), userID, req.PlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"claim": claim}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateDirectorClaim godoc
// @Summary Заявка на роль директора турниров
// @Tags claims
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Пользователь уже директор или заявка уже есть"
// @Security BearerAuth
// @Router /claims/director [post]
func (h *ClaimHandler) CreateDirectorClaim(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	claim, err := h.claimService.CreateDirectorClaim(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"claim": claim}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPending godoc
// @Summary Нерассмотренные заявки
// @Tags claims
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /claims [get]
func (h *ClaimHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claimService.ListPending(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"claims": claims}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Resolve godoc
// @Summary Одобрение или отклонение заявки
// @Tags claims
// @Accept json
// @Produce json
// @Param claimID path int true "Claim ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Заявка уже рассмотрена"
// @Security BearerAuth
// @Router /claims/{claimID}/resolve [post]
func (h *ClaimHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "claimID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req resolveClaimRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Approved == nil {
		badRequestResponse(w, r, errors.New("approved is required"))
		return
	}

	claim, err := h.claimService.Resolve(r.Context(), id, *req.Approved)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"claim": claim}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
