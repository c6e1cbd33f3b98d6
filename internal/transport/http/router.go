package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"quiz-assessment-service/internal/domain"
)

// NewRouter mounts the admin mapping API, the quiz listing and the attempt websocket.
func NewRouter(mappings *MappingHandler, attempts *AttemptHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/quizzes", attempts.ListQuizzes).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizID}/assignable", mappings.Assignable).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizID}/mappings", mappings.Map).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizID}/mappings", mappings.Unmap).Methods(http.MethodDelete)
	r.HandleFunc("/ws/attempt", attempts.ServeWS).Methods(http.MethodGet)
	return r
}

type errorPayload struct {
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrQuizClosed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMappingConflict), errors.Is(err, domain.ErrSubmissionInFlight),
		errors.Is(err, domain.ErrAttemptSubmitted), errors.Is(err, domain.ErrAttemptExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoAttemptData):
		return http.StatusGone
	case errors.Is(err, domain.ErrNetworkFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}
