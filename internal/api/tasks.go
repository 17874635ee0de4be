package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/database"
	"github.com/snarg/mallok/internal/pipeline"
	"github.com/snarg/mallok/internal/task"
)

// TaskSubmitter queues work and reports live task state.
type TaskSubmitter interface {
	Submit(userID string, ct task.ContentType, lang task.Language, audioPath string) (string, error)
	LiveStatus(taskID, userID string) (pipeline.LiveState, bool)
	Engine() string
	Stats() pipeline.QueueStats
}

// RecordReader reads durable task records.
type RecordReader interface {
	GetRecord(ctx context.Context, taskID, userID string) (*task.Record, error)
	ListHistory(ctx context.Context, userID string, limit, offset int) ([]task.HistoryEntry, int, error)
}

// AudioSpool stores uploads until the pipeline takes ownership.
type AudioSpool interface {
	Save(r io.Reader, ext string) (string, int64, error)
	Remove(path string) error
}

const (
	maxFieldBytes = 256 // non-file form fields
	uploadTimeout = 30 * time.Minute
)

type TasksHandler struct {
	tasks    TaskSubmitter
	records  RecordReader
	spool    AudioSpool
	maxBytes int64
	log      zerolog.Logger
}

func NewTasksHandler(tasks TaskSubmitter, records RecordReader, spool AudioSpool, maxBytes int64, log zerolog.Logger) *TasksHandler {
	return &TasksHandler{
		tasks:    tasks,
		records:  records,
		spool:    spool,
		maxBytes: maxBytes,
		log:      log.With().Str("handler", "tasks").Logger(),
	}
}

// Routes registers the task endpoints.
func (h *TasksHandler) Routes(r chi.Router) {
	r.Post("/transcribe", h.Transcribe)
	r.Get("/status/{taskID}", h.Status)
	r.Get("/history", h.History)
}

type submitResponse struct {
	Success     bool             `json:"success"`
	TaskID      string           `json:"task_id"`
	Status      task.Status      `json:"status"`
	Message     string           `json:"message"`
	Engine      string           `json:"engine"`
	ContentType task.ContentType `json:"transcription_type"`
}

// Transcribe handles POST /api/transcribe. The multipart body is streamed so
// the file part goes straight to the spool without buffering in memory.
func (h *TasksHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	rc.SetReadDeadline(time.Now().Add(uploadTimeout))
	rc.SetWriteDeadline(time.Now().Add(uploadTimeout))
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	mr, err := r.MultipartReader()
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "invalid multipart form: "+err.Error())
		return
	}

	var (
		path   string
		queued bool
		fields = make(map[string]string, 2)
	)
	defer func() {
		if path != "" && !queued {
			h.spool.Remove(path)
		}
	}()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.writeBodyError(w, err)
			return
		}
		switch name := part.FormName(); name {
		case "file":
			if path != "" {
				break
			}
			p, n, err := h.spool.Save(io.LimitReader(part, h.maxBytes+1), audio.SpoolExt(part.FileName()))
			if p != "" {
				path = p
			}
			if err != nil {
				part.Close()
				h.writeBodyError(w, err)
				return
			}
			if n > h.maxBytes {
				part.Close()
				WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrTooLarge, "file exceeds upload limit")
				return
			}
		case "language", "transcription_type":
			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				part.Close()
				h.writeBodyError(w, err)
				return
			}
			fields[name] = strings.TrimSpace(string(b))
		}
		part.Close()
	}

	if path == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "missing file")
		return
	}
	lang, err := task.ParseLanguage(fields["language"])
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	ct, err := task.ParseContentType(fields["transcription_type"])
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	id, err := h.tasks.Submit(requestUser(r), ct, lang, path)
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrQueueFull, "task queue is full, try again later")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("submit failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "failed to queue task")
		return
	}
	queued = true

	hlog.FromRequest(r).Info().
		Str("task_id", id).
		Str("type", string(ct)).
		Str("lang", string(lang)).
		Msg("task queued")

	WriteJSON(w, http.StatusAccepted, submitResponse{
		Success:     true,
		TaskID:      id,
		Status:      task.StatusQueued,
		Message:     ct.Label() + " 변환 작업이 시작되었습니다.",
		Engine:      h.tasks.Engine(),
		ContentType: ct,
	})
}

func (h *TasksHandler) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrTooLarge, "file exceeds upload limit")
		return
	}
	h.log.Warn().Err(err).Msg("upload read failed")
	WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "failed to read upload")
}

type statusResponse struct {
	TaskID string      `json:"task_id"`
	Status task.Status `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Status handles GET /api/status/{taskID}.
func (h *TasksHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID := requestUser(r)

	if s, ok := h.tasks.LiveStatus(taskID, userID); ok && !s.Status.Terminal() {
		WriteJSON(w, http.StatusOK, statusResponse{TaskID: taskID, Status: s.Status})
		return
	}

	rec, err := h.records.GetRecord(r.Context(), taskID, userID)
	if errors.Is(err, database.ErrNotFound) {
		// A terminal status whose record is not visible yet still reads
		// as processing rather than not_found. Failed tasks keep their
		// message even when the error record was never written.
		if s, ok := h.tasks.LiveStatus(taskID, userID); ok {
			WriteJSON(w, http.StatusOK, liveFallback(taskID, s))
			return
		}
		WriteJSON(w, http.StatusOK, statusResponse{TaskID: taskID, Status: task.StatusNotFound})
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("task_id", taskID).Msg("status lookup failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "failed to load task")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func liveFallback(taskID string, s pipeline.LiveState) statusResponse {
	if s.Status == task.StatusError {
		return statusResponse{TaskID: taskID, Status: task.StatusError, Error: s.Error}
	}
	return statusResponse{TaskID: taskID, Status: task.StatusProcessing}
}

type historyResponse struct {
	History []task.HistoryEntry `json:"history"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

// History handles GET /api/history.
func (h *TasksHandler) History(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	entries, total, err := h.records.ListHistory(r.Context(), requestUser(r), p.Limit, p.Offset)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("history lookup failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "failed to load history")
		return
	}
	if entries == nil {
		entries = []task.HistoryEntry{}
	}
	WriteJSON(w, http.StatusOK, historyResponse{History: entries, Total: total, Limit: p.Limit, Offset: p.Offset})
}
