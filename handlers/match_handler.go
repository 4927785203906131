package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Dosada05/match-score/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type scoreRequest struct {
	PlayerID int `json:"player_id"`
	Delta    int `json:"delta"`
}

type rescheduleRequest struct {
	Date time.Time `json:"date"`
}

// List godoc
// @Summary Список матчей
// @Description Матчи с участниками и счётом. Параметр tournament фильтрует по подстроке названия турнира.
// @Tags matches
// @Produce json
// @Param tournament query string false "Название турнира"
// @Success 200 {object} map[string]interface{}
// @Router /matches [get]
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListMatches(r.Context(), services.ListMatchesInput{
		TournamentSearch: r.URL.Query().Get("tournament"),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary Матч по ID
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Создание матча
// @Tags matches
// @Accept json
// @Produce json
// @Param input body services.CreateMatchInput true "Формат, дата и имена участников"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /matches [post]
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Date.IsZero() {
		badRequestResponse(w, r, errors.New("date is required"))
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateScore godoc
// @Summary Изменение счёта участника матча
// @Description Добавляет delta к счёту; отрицательный итог и завершённый матч отклоняются.
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body scoreRequest true "ID игрока и приращение счёта"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Матч уже завершён"
// @Failure 422 {object} map[string]string "Игрок не участвует или счёт стал бы отрицательным"
// @Security BearerAuth
// @Router /matches/{matchID}/score [post]
func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req scoreRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.PlayerID <= 0 {
		badRequestResponse(w, r, errors.New("player_id is required"))
		return
	}

	participant, err := h.matchService.UpdateScore(r.Context(), id, req.PlayerID, req.Delta)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reschedule godoc
// @Summary Перенос матча
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body rescheduleRequest true "Новая дата"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Дата в прошлом"
// @Failure 409 {object} map[string]string "Матч уже завершён"
// @Security BearerAuth
// @Router /matches/{matchID}/date [patch]
func (h *MatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req rescheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Date.IsZero() {
		badRequestResponse(w, r, errors.New("date is required"))
		return
	}

	match, err := h.matchService.RescheduleMatch(r.Context(), id, req.Date)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Finish godoc
// @Summary Завершение матча
// @Description Фиксирует результат и обновляет статистику игроков. Матчи плей-офф завершаются только через next-round.
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Матч уже завершён"
// @Security BearerAuth
// @Router /matches/{matchID}/finish [post]
func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	outcome, err := h.matchService.FinalizeMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
