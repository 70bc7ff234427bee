package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cuestionarios/internal/model"
	"cuestionarios/internal/service"
	"cuestionarios/internal/transport/rest/middleware"
)

// SessionHandler exposes questionnaire sessions to thin clients
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// OpenSessionRequest is the request body for opening a session
type OpenSessionRequest struct {
	Usuario      int  `json:"usuario"`
	Cuestionario int  `json:"cuestionario"`
	ReadOnly     bool `json:"readOnly"`
}

// SubmitAnswerRequest carries the raw value emitted by an input
type SubmitAnswerRequest struct {
	Respuesta json.RawMessage `json:"respuesta"`
}

// SubmitAnswerResponse reports the submission state after a write was scheduled
type SubmitAnswerResponse struct {
	Pregunta int                   `json:"pregunta"`
	State    model.SubmissionState `json:"state"`
}

// Open handles POST /v1/sessions
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	openedBy := middleware.GetStaffID(r.Context())
	if openedBy == "" {
		// Candidates always open their own sessions and cannot ask for review mode.
		req.Usuario = middleware.GetUsuario(r.Context())
		req.ReadOnly = false
		openedBy = fmt.Sprintf("usuario:%d", req.Usuario)
	}

	sess, err := h.sessionSvc.Open(r.Context(), req.Usuario, req.Cuestionario, openedBy, req.ReadOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.sessionSvc.View(sess))
}

// Get handles GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessionSvc.View(sess))
}

// SubmitAnswer handles PUT /v1/sessions/{id}/answers/{pregunta}
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	pregunta, err := strconv.Atoi(mux.Vars(r)["pregunta"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pregunta")
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.sessionSvc.SubmitAnswer(r.Context(), sess, pregunta, req.Respuesta)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitAnswerResponse{Pregunta: pregunta, State: state})
}

// Retry handles POST /v1/sessions/{id}/answers/{pregunta}/retry
func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	pregunta, err := strconv.Atoi(mux.Vars(r)["pregunta"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pregunta")
		return
	}

	state, err := h.sessionSvc.Retry(r.Context(), sess, pregunta)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitAnswerResponse{Pregunta: pregunta, State: state})
}

// CurrentSection handles GET /v1/sessions/{id}/sections/current
func (h *SessionHandler) CurrentSection(w http.ResponseWriter, r *http.Request) {
	h.section(w, r, h.sessionSvc.CurrentSection)
}

// NextSection handles POST /v1/sessions/{id}/sections/next
func (h *SessionHandler) NextSection(w http.ResponseWriter, r *http.Request) {
	h.section(w, r, h.sessionSvc.Next)
}

// PrevSection handles POST /v1/sessions/{id}/sections/prev
func (h *SessionHandler) PrevSection(w http.ResponseWriter, r *http.Request) {
	h.section(w, r, h.sessionSvc.Prev)
}

// GoToSection handles POST /v1/sessions/{id}/sections/{index}
func (h *SessionHandler) GoToSection(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid section index")
		return
	}
	h.section(w, r, func(sess *service.Session) (service.SectionView, error) {
		return h.sessionSvc.GoTo(sess, index)
	})
}

func (h *SessionHandler) section(w http.ResponseWriter, r *http.Request, fn func(*service.Session) (service.SectionView, error)) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := fn(sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Progress handles GET /v1/sessions/{id}/progress
func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessionSvc.Progress(sess))
}

// Finalize handles POST /v1/sessions/{id}/finalize
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	f, err := h.sessionSvc.Finalize(r.Context(), sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// Close handles DELETE /v1/sessions/{id}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	h.sessionSvc.Close(r.Context(), sess)
	w.WriteHeader(http.StatusNoContent)
}

// session loads the session named in the path and checks the caller owns it
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := h.sessionSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	if err := h.sessionSvc.Authorize(sess, middleware.GetUsuario(r.Context())); err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return sess, true
}
