package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/mallok/internal/correct"
	"github.com/snarg/mallok/internal/task"
	"github.com/snarg/mallok/internal/transcribe"
)

// DictionarySizes reports the active rule count per dictionary table.
type DictionarySizes interface {
	Sizes() map[string]int
}

const (
	termsPromptRunes = 500
	termsListMax     = 30
)

type TermsHandler struct {
	dict DictionarySizes
}

func NewTermsHandler(dict DictionarySizes) *TermsHandler {
	return &TermsHandler{dict: dict}
}

// Routes registers the terms endpoint.
func (h *TermsHandler) Routes(r chi.Router) {
	r.Get("/terms", h.Terms)
}

type termsResponse struct {
	CorrectionPrompt string         `json:"correction_prompt"`
	SermonTerms      []string       `json:"sermon_terms"`
	DictionarySizes  map[string]int `json:"dictionary_sizes"`
}

// Terms handles GET /api/terms.
func (h *TermsHandler) Terms(w http.ResponseWriter, r *http.Request) {
	prompt := []rune(correct.CorrectionTemplate(task.Sermon, task.Korean))
	if len(prompt) > termsPromptRunes {
		prompt = prompt[:termsPromptRunes]
	}

	terms := strings.Split(transcribe.VocabularyHint(task.Korean, task.Sermon), ", ")
	if len(terms) > termsListMax {
		terms = terms[:termsListMax]
	}

	WriteJSON(w, http.StatusOK, termsResponse{
		CorrectionPrompt: string(prompt),
		SermonTerms:      terms,
		DictionarySizes:  h.dict.Sizes(),
	})
}
