package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"relapitch/internal/app"
	"relapitch/internal/domain"
)

// Handler exposes the progress engine over HTTP/JSON, mirroring the
// endpoints the lesson and quiz pages call.
type Handler struct {
	service *app.ProgressService
}

func NewHandler(service *app.ProgressService) *Handler {
	return &Handler{service: service}
}

// Register wires the JSON routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /lessons/{id}", h.lesson)
	mux.HandleFunc("POST /quiz/start", h.startQuiz)
	mux.HandleFunc("GET /quiz/question", h.question)
	mux.HandleFunc("POST /quiz/submit", h.submitAnswer)
	mux.HandleFunc("POST /log_progress", h.logProgress)
	mux.HandleFunc("GET /progress", h.progress)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidMode), errors.Is(err, domain.ErrMissingItemID):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrLessonNotFound), errors.Is(err, domain.ErrUnknownQuestion), errors.Is(err, domain.ErrNoQuiz):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCatalogUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func userID(r *http.Request) (string, bool) {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id, true
	}
	return "", false
}

func (h *Handler) lesson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid lesson id"})
		return
	}
	lesson, err := h.service.Lesson(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

type startQuizRequest struct {
	Mode          string `json:"mode"`
	ReferenceNote string `json:"reference_note"`
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId"})
		return
	}
	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	reference := req.ReferenceNote
	if reference == "" {
		reference = "C" + domain.DefaultOctave
	}
	if err := h.service.StartQuiz(r.Context(), user, mode, reference); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handler) question(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId"})
		return
	}
	number, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || number < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid question number"})
		return
	}
	question, err := h.service.Question(r.Context(), user, number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

type submitAnswerRequest struct {
	QuestionNumber int    `json:"question_number"`
	Answer         string `json:"answer"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId"})
		return
	}
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.QuestionNumber < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid question number"})
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), user, req.QuestionNumber, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type logProgressRequest struct {
	ItemID   string `json:"itemId"`
	Points   int    `json:"points"`
	ItemType string `json:"itemType"`
}

type logProgressResponse struct {
	Status            string             `json:"status"`
	NewScore          int                `json:"new_score"`
	AwardedItemPoints int                `json:"awarded_item_points"`
	Quest             domain.QuestStatus `json:"daily_quest_update"`
}

func (h *Handler) logProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId"})
		return
	}
	var req logProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := h.service.LogItem(r.Context(), user, req.ItemID, req.Points, req.ItemType)
	if err != nil {
		writeError(w, err)
		return
	}
	status := "success_item_already_completed"
	if result.NewItem {
		status = "success_new_item"
	}
	writeJSON(w, http.StatusOK, logProgressResponse{
		Status:            status,
		NewScore:          result.TotalScore,
		AwardedItemPoints: result.AwardedPoints,
		Quest:             result.Quest,
	})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId"})
		return
	}
	snapshot, err := h.service.Progress(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
