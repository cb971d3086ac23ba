package http

import (
	"context"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ParticipantTokenHeader carries the ownership secret of anonymous players.
const ParticipantTokenHeader = "X-Participant-Token"

// Handler exposes the session use cases as JSON endpoints.
type Handler struct {
	service  *app.SessionService
	validate *validator.Validate
}

func NewHandler(service *app.SessionService) *Handler {
	return &Handler{service: service, validate: newValidator()}
}

// NewRouter wires REST, WebSocket and health endpoints behind the auth middleware.
func NewRouter(service *app.SessionService, auth *Authenticator) *mux.Router {
	h := NewHandler(service)
	ws := NewWSHandler(service)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(auth.Middleware)
	api.HandleFunc("/quizzes", h.CreateQuiz).Methods(http.MethodPost)
	api.HandleFunc("/quizzes/{id}", h.GetQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quiz-sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/quiz-sessions/{id}", h.Snapshot).Methods(http.MethodGet)
	api.HandleFunc("/quiz-sessions/{id}/leaderboard", h.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/quiz-sessions/{id}/join", h.Join).Methods(http.MethodPost)
	api.HandleFunc("/quiz-sessions/{id}/start", h.Start).Methods(http.MethodPost)
	api.HandleFunc("/quiz-sessions/{id}/next-question", h.NextQuestion).Methods(http.MethodPost)
	api.HandleFunc("/quiz-sessions/{id}/complete", h.Complete).Methods(http.MethodPost)
	api.HandleFunc("/quiz-sessions/{id}/submit-answer", h.SubmitAnswer).Methods(http.MethodPost)
	api.HandleFunc("/quiz-sessions/{id}/ws", ws.ServeWS).Methods(http.MethodGet)
	return r
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), UserFrom(r.Context()), req.quiz())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snapshot, err := h.service.CreateSession(r.Context(), UserFrom(r.Context()), req.QuizID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Join(r.Context(), UserFrom(r.Context()), mux.Vars(r)["id"], req.Pseudo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start)
}

func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.NextQuestion)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	snapshot, err := fn(r.Context(), UserFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.SubmitAnswer(
		r.Context(),
		UserFrom(r.Context()),
		r.Header.Get(ParticipantTokenHeader),
		mux.Vars(r)["id"],
		req.submission(),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type transitionFunc func(ctx context.Context, user *domain.User, sessionID string) (domain.Snapshot, error)
