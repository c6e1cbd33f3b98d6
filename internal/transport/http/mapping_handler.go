package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

// MappingHandler exposes the mapping engine to the admin console.
type MappingHandler struct {
	engine *app.MappingEngine
}

func NewMappingHandler(engine *app.MappingEngine) *MappingHandler {
	return &MappingHandler{engine: engine}
}

// mapRequest carries per-question marks; AllMarks and AllNegativeMarks, when present,
// override them for every selected question.
type mapRequest struct {
	GroupID          string             `json:"groupId"`
	Selections       []domain.Selection `json:"selections"`
	AllMarks         *float64           `json:"allMarks,omitempty"`
	AllNegativeMarks *float64           `json:"allNegativeMarks,omitempty"`
}

func (req mapRequest) selectionSet() (*app.SelectionSet, error) {
	set := app.NewSelectionSet()
	for _, sel := range req.Selections {
		if set.Contains(sel.QuestionID) {
			return nil, domain.Invalid("selections", "question "+sel.QuestionID+" selected twice")
		}
		set.Select(sel.QuestionID)
		if sel.Marks != nil {
			set.SetMarks(sel.QuestionID, *sel.Marks)
		}
		if sel.NegativeMarks != nil {
			set.SetNegativeMarks(sel.QuestionID, *sel.NegativeMarks)
		}
	}
	if req.AllMarks != nil {
		set.SetAllMarks(*req.AllMarks)
	}
	if req.AllNegativeMarks != nil {
		set.SetAllNegativeMarks(*req.AllNegativeMarks)
	}
	return set, nil
}

type unmapRequest struct {
	MappingIDs []string `json:"mappingIds"`
}

// Assignable serves GET /quizzes/{quizID}/assignable?groupId=&levelId=.
func (h *MappingHandler) Assignable(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizID"]
	q := r.URL.Query()
	pool, err := h.engine.FetchAssignable(r.Context(), quizID, q.Get("groupId"), q.Get("levelId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// Map serves POST /quizzes/{quizID}/mappings.
func (h *MappingHandler) Map(w http.ResponseWriter, r *http.Request) {
	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Invalid("body", err.Error()))
		return
	}
	set, err := req.selectionSet()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.engine.MapSelected(r.Context(), mux.Vars(r)["quizID"], req.GroupID, set.Selections())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Unmap serves DELETE /quizzes/{quizID}/mappings. Stale ids are reported per item with 200.
func (h *MappingHandler) Unmap(w http.ResponseWriter, r *http.Request) {
	var req unmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Invalid("body", err.Error()))
		return
	}
	res, err := h.engine.UnmapSelected(r.Context(), mux.Vars(r)["quizID"], req.MappingIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
