package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/exporter"
	"qms-exporter/internal/report"
	"qms-exporter/internal/security"
	"qms-exporter/internal/server/hub"
	"qms-exporter/internal/server/middleware"
	"qms-exporter/internal/server/store"
	"qms-exporter/internal/storage"
	"qms-exporter/internal/worker"
)

// History is the export log kept by the store.
type History interface {
	ListExports(ctx context.Context, kind string, limit int) ([]worker.JobView, error)
}

// Keys manages API keys.
type Keys interface {
	CreateAPIKey(ctx context.Context, label, keyType string) (string, error)
	ListAPIKeys(ctx context.Context) ([]store.APIKey, error)
}

type Handler struct {
	Pool    *worker.Pool
	Storage storage.Provider
	Hub     *hub.Hub
	// History and Keys are nil when no store is configured.
	History History
	Keys    Keys

	TokenSecret    string
	Timeout        time.Duration
	AllowedOrigins []string

	upgrader websocket.Upgrader
}

func NewHandler(pool *worker.Pool, store storage.Provider, h *hub.Hub, timeout time.Duration, tokenSecret string, allowedOrigins []string) *Handler {
	handler := &Handler{
		Pool:           pool,
		Storage:        store,
		Hub:            h,
		TokenSecret:    tokenSecret,
		Timeout:        timeout,
		AllowedOrigins: allowedOrigins,
	}
	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(handler.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return handler
}

// Register mounts the routes on mux. protect wraps every route that needs
// a signed request; downloads carry their own token and the job stream is
// read-only.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("POST /exports", protect(http.HandlerFunc(h.HandleCreateExport)))
	mux.Handle("GET /exports", protect(http.HandlerFunc(h.HandleListExports)))
	mux.Handle("GET /exports/{id}", protect(http.HandlerFunc(h.HandleExportStatus)))
	mux.HandleFunc("GET /exports/{id}/download", h.HandleDownload)
	mux.Handle("POST /render/{kind}", protect(http.HandlerFunc(h.HandleRender)))
	mux.HandleFunc("GET /jobs/stream", h.HandleJobStream)
	mux.Handle("POST /keys", protect(http.HandlerFunc(h.HandleCreateKey)))
	mux.Handle("GET /keys", protect(http.HandlerFunc(h.HandleListKeys)))
	mux.HandleFunc("GET /healthz", h.HandleHealth)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// --- Export Handlers ---

// ExportRequest carries either an inline report or the id of a stored one.
type ExportRequest struct {
	Kind     string          `json:"kind"`
	Report   json.RawMessage `json:"report,omitempty"`
	SourceID string          `json:"source_id,omitempty"`
	Email    []string        `json:"email,omitempty"`
	Subject  string          `json:"subject,omitempty"`
	Format   string          `json:"format,omitempty"`
}

// job validates the request and builds the job it describes.
func (req ExportRequest) job(timeout time.Duration) (*worker.ExportJob, error) {
	kind, err := report.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	switch req.Format {
	case "", exporter.FormatPDF, exporter.FormatCSV, exporter.FormatJSON, exporter.FormatXLSX:
	default:
		return nil, fmt.Errorf("%w: %q", exporter.ErrUnsupportedFormat, req.Format)
	}
	for _, addr := range req.Email {
		if err := security.ValidateEmail(addr); err != nil {
			return nil, fmt.Errorf("email %q: %w", addr, err)
		}
	}

	hasReport := len(req.Report) > 0 && string(req.Report) != "null"
	switch {
	case hasReport && req.SourceID != "":
		return nil, errors.New("report and source_id are mutually exclusive")
	case req.SourceID != "":
		return worker.NewSourceJob(kind, req.SourceID, req.Email, req.Subject, req.Format, timeout), nil
	case hasReport:
		r, err := report.Decode(kind, req.Report)
		if err != nil {
			return nil, err
		}
		return worker.NewExportJob(r, req.Email, req.Subject, req.Format, timeout), nil
	}
	return nil, errors.New("either report or source_id is required")
}

type ExportAccepted struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

func (h *Handler) HandleCreateExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, middleware.MaxBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	job, err := req.job(h.Timeout)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Pool.Submit(job); err != nil {
		job.Cancel()
		switch {
		case errors.Is(err, worker.ErrQueueFull):
			w.Header().Set("Retry-After", "30")
			http.Error(w, "Export queue is full", http.StatusServiceUnavailable)
		case errors.Is(err, worker.ErrNoSource):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Submit failed", "error", err)
			http.Error(w, "Failed to queue export", http.StatusInternalServerError)
		}
		return
	}

	slog.Info("Export queued", "job_id", job.ID, "kind", job.Kind, "format", job.Format)
	writeJSON(w, http.StatusAccepted, ExportAccepted{
		JobID:     job.ID,
		Status:    string(worker.StatusPending),
		StatusURL: "/exports/" + job.ID,
	})
}

func (h *Handler) HandleExportStatus(w http.ResponseWriter, r *http.Request) {
	v, ok := h.Pool.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Export not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleListExports(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "Export history is not configured", http.StatusNotImplemented)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	views, err := h.History.ListExports(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		slog.Error("List exports failed", "error", err)
		http.Error(w, "Failed to list exports", http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []worker.JobView{}
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleDownload streams a stored document to the holder of a valid token.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if h.TokenSecret == "" {
		http.Error(w, "Downloads are disabled", http.StatusNotFound)
		return
	}
	claims, err := security.ParseDownloadToken(h.TokenSecret, r.URL.Query().Get("token"))
	if err != nil {
		slog.Warn("Rejected download token", "job_id", r.PathValue("id"), "error", err)
		http.Error(w, "Invalid or expired link", http.StatusForbidden)
		return
	}
	if claims.JobID != r.PathValue("id") {
		http.Error(w, "Invalid or expired link", http.StatusForbidden)
		return
	}

	f, err := h.Storage.OpenFile(r.Context(), claims.Subject)
	if err != nil {
		slog.Error("Open stored document failed", "key", claims.Subject, "error", err)
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", storage.ContentType(claims.Subject))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(claims.Subject)))
	if _, err := io.Copy(w, f); err != nil {
		slog.Warn("Download interrupted", "key", claims.Subject, "error", err)
	}
}

// --- Synchronous Render ---

type RenderResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages,omitempty"`
	Size        int    `json:"size"`
	Content     string `json:"content"`
}

// HandleRender lays the posted report out immediately. ?format=base64
// returns the PDF wrapped in JSON; csv, json and xlsx are accepted for
// the prescription register.
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, middleware.MaxBodySize))
	if err != nil {
		http.Error(w, "Unreadable body", http.StatusBadRequest)
		return
	}
	rep, err := report.Decode(kind, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	asBase64 := format == "base64"
	if asBase64 {
		format = exporter.FormatPDF
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	a, err := h.Pool.Render(ctx, rep, format)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, exporter.ErrUnsupportedFormat), errors.Is(err, report.ErrInvalidTrimester), errors.Is(err, composer.ErrPayloadMismatch):
			status = http.StatusBadRequest
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		slog.Error("Render failed", "kind", kind, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	if asBase64 {
		writeJSON(w, http.StatusOK, RenderResponse{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Pages:       a.Pages,
			Size:        a.Size(),
			Content:     a.Base64(),
		})
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", a.Filename))
	if a.Pages > 0 {
		w.Header().Set("X-Page-Count", strconv.Itoa(a.Pages))
	}
	w.Write(a.Data)
}

// --- Job Stream ---

func (h *Handler) HandleJobStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Job stream upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)

	// Keep connection open until the client goes away.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}

// --- API Key Handlers ---

type CreateKeyRequest struct {
	Label string `json:"label"`
	Type  string `json:"type"` // "live" or "test"
}

func (h *Handler) HandleCreateKey(w http.ResponseWriter, r *http.Request) {
	if h.Keys == nil {
		http.Error(w, "API keys are not configured", http.StatusNotImplemented)
		return
	}
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = "live"
	}

	key, err := h.Keys.CreateAPIKey(r.Context(), req.Label, req.Type)
	if errors.Is(err, store.ErrInvalidKeyType) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Create key failed", "error", err)
		http.Error(w, "Failed to create key", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "type": req.Type, "label": req.Label})
}

func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	if h.Keys == nil {
		http.Error(w, "API keys are not configured", http.StatusNotImplemented)
		return
	}
	keys, err := h.Keys.ListAPIKeys(r.Context())
	if err != nil {
		slog.Error("List keys failed", "error", err)
		http.Error(w, "Failed to list keys", http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []store.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "stream_clients": h.Hub.Count()})
}
