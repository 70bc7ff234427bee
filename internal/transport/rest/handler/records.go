package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"cuestionarios/internal/model"
	"cuestionarios/internal/service"
	"cuestionarios/internal/transport/rest/middleware"
)

// RecordsHandler serves the questionnaire backend endpoints
type RecordsHandler struct {
	recordsSvc *service.RecordsService
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(recordsSvc *service.RecordsService) *RecordsHandler {
	return &RecordsHandler{recordsSvc: recordsSvc}
}

// GetQuestionnaire handles GET /api/cuestionarios/{id}/
func (h *RecordsHandler) GetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cuestionario id")
		return
	}

	q, err := h.recordsSvc.GetQuestionnaire(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// ListQuestionnaires handles GET /api/cuestionarios/
func (h *RecordsHandler) ListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	list, err := h.recordsSvc.ListQuestionnaires(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []*model.Questionnaire{}
	}

	writeJSON(w, http.StatusOK, list)
}

// PutQuestionnaire handles PUT /api/cuestionarios/{id}/ (staff only)
func (h *RecordsHandler) PutQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cuestionario id")
		return
	}

	var q model.Questionnaire
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q.ID = id

	if err := h.recordsSvc.PutQuestionnaire(r.Context(), &q); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// ListAnswers handles GET /api/cuestionarios/respuestas/?usuario=&cuestionario=
func (h *RecordsHandler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	usuario, cuestionario, ok := userParams(w, r)
	if !ok {
		return
	}

	records, err := h.recordsSvc.ListAnswers(r.Context(), usuario, cuestionario)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []model.AnswerRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// SaveAnswer handles POST /api/cuestionarios/respuestas/
func (h *RecordsHandler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	var rec model.AnswerRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !middleware.CanActFor(r.Context(), rec.Usuario) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.recordsSvc.SaveAnswer(r.Context(), &rec); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetFinalization handles GET /api/cuestionarios/finalizar-cuestionario/?usuario=&cuestionario=
func (h *RecordsHandler) GetFinalization(w http.ResponseWriter, r *http.Request) {
	usuario, cuestionario, ok := userParams(w, r)
	if !ok {
		return
	}

	f, err := h.recordsSvc.GetFinalization(r.Context(), usuario, cuestionario)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// Finalize handles POST /api/cuestionarios/finalizar-cuestionario/
func (h *RecordsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req model.Finalization
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !middleware.CanActFor(r.Context(), req.Usuario) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	f, err := h.recordsSvc.Finalize(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// GetProfileFieldValue handles GET /api/cuestionarios/profile-fields/user/{uid}/value/{path}/
func (h *RecordsHandler) GetProfileFieldValue(w http.ResponseWriter, r *http.Request) {
	usuario, path, ok := profileParams(w, r)
	if !ok {
		return
	}

	v, err := h.recordsSvc.GetProfileFieldValue(r.Context(), usuario, path)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// SetProfileFieldValue handles PUT /api/cuestionarios/profile-fields/user/{uid}/value/{path}/ (staff only)
func (h *RecordsHandler) SetProfileFieldValue(w http.ResponseWriter, r *http.Request) {
	usuario, path, ok := profileParams(w, r)
	if !ok {
		return
	}

	var body struct {
		Valor json.RawMessage `json:"valor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v := &model.ProfileFieldValue{Usuario: usuario, Path: path, Valor: body.Valor}
	if err := h.recordsSvc.SetProfileFieldValue(r.Context(), v); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func userParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	usuario, err1 := strconv.Atoi(r.URL.Query().Get("usuario"))
	cuestionario, err2 := strconv.Atoi(r.URL.Query().Get("cuestionario"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "usuario and cuestionario query parameters are required")
		return 0, 0, false
	}
	if !middleware.CanActFor(r.Context(), usuario) {
		writeError(w, http.StatusForbidden, "forbidden")
		return 0, 0, false
	}
	return usuario, cuestionario, true
}

// profileParams reads the path vars; the router keeps them encoded so a field
// path may carry escaped slashes.
func profileParams(w http.ResponseWriter, r *http.Request) (int, string, bool) {
	vars := mux.Vars(r)
	usuario, err := strconv.Atoi(vars["uid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid usuario")
		return 0, "", false
	}
	path, err := url.PathUnescape(vars["path"])
	if err != nil || path == "" {
		writeError(w, http.StatusBadRequest, "invalid field path")
		return 0, "", false
	}
	if !middleware.CanActFor(r.Context(), usuario) {
		writeError(w, http.StatusForbidden, "forbidden")
		return 0, "", false
	}
	return usuario, path, true
}
