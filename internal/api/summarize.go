package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/mallok/internal/correct"
	"github.com/snarg/mallok/internal/task"
)

// Summarizer produces sermon summaries.
type Summarizer interface {
	Summarize(ctx context.Context, text string, kind correct.SummaryKind) (string, error)
}

const maxSummaryBody = 4 << 20

type SummarizeHandler struct {
	summarizer Summarizer
}

func NewSummarizeHandler(s Summarizer) *SummarizeHandler {
	return &SummarizeHandler{summarizer: s}
}

// Routes registers the summary endpoint.
func (h *SummarizeHandler) Routes(r chi.Router) {
	r.Post("/summarize", h.Summarize)
}

type summarizeResponse struct {
	Success     bool                `json:"success"`
	Summary     string              `json:"summary"`
	SummaryType correct.SummaryKind `json:"summary_type"`
}

// Summarize handles POST /api/summarize with form fields text and summary_type.
func (h *SummarizeHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSummaryBody)
	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "text is required")
		return
	}
	kind := correct.ParseSummaryKind(r.FormValue("summary_type"))

	summary, err := h.summarizer.Summarize(r.Context(), text, kind)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("summary_type", string(kind)).Msg("summary failed")
		WriteErrorDetail(w, http.StatusInternalServerError, "summary failed", task.UserMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, summarizeResponse{Success: true, Summary: summary, SummaryType: kind})
}
