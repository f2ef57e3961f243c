package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

// ExtractionExporter produces an XLSX workbook of one owner's records.
type ExtractionExporter interface {
	ExportExtractionsXLSX(ctx context.Context, ownerID string) ([]byte, error)
}

// ObservationRecorder receives domain-level request observations.
type ObservationRecorder interface {
	RecordUpload(service string, sizeBytes int64)
	RecordTransition(service, action, status string)
	RecordSignedURL(service, purpose string)
	RecordExport(service, status string)
}

// DefaultSignedURLTTL bounds how long preview and download links stay valid.
const DefaultSignedURLTTL = 15 * time.Minute

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxWait        time.Duration
	SignedURLTTL   time.Duration
	ServiceName    string
	Metrics        ObservationRecorder
}

type Router struct {
	uploader    ports.DocumentUploader
	lifecycle   ports.DocumentLifecycle
	extractions ports.ExtractionReader
	exporter    ExtractionExporter
	auth        *Authenticator
	fileHandler http.Handler
	options     Options
}

func NewRouter(
	uploader ports.DocumentUploader,
	lifecycle ports.DocumentLifecycle,
	extractions ports.ExtractionReader,
	exporter ExtractionExporter,
	auth *Authenticator,
	options Options,
) *Router {
	if options.SignedURLTTL <= 0 {
		options.SignedURLTTL = DefaultSignedURLTTL
	}
	return &Router{
		uploader:    uploader,
		lifecycle:   lifecycle,
		extractions: extractions,
		exporter:    exporter,
		auth:        auth,
		options:     options,
	}
}

// SetFileHandler mounts a handler for locally served signed artifact links.
// Bucket-backed deployments redirect straight to the bucket and skip this.
func (rt *Router) SetFileHandler(handler http.Handler) {
	rt.fileHandler = handler
}

func (rt *Router) Handler() http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/documents", rt.uploadDocument)
	protected.HandleFunc("GET /v1/documents", rt.listDocuments)
	protected.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	protected.HandleFunc("GET /v1/documents/{id}/preview", rt.previewDocument)
	protected.HandleFunc("POST /v1/documents/{id}/approve", rt.approveDocument)
	protected.HandleFunc("POST /v1/documents/{id}/reject", rt.rejectDocument)
	protected.HandleFunc("GET /v1/documents/{id}/download", rt.downloadDocument)
	protected.HandleFunc("GET /v1/documents/{id}/extraction", rt.getExtraction)
	protected.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	protected.HandleFunc("GET /v1/extractions/export", rt.exportExtractions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.fileHandler != nil {
		mux.Handle("GET /v1/files", rt.fileHandler)
	}
	mux.Handle("/v1/", rt.auth.Middleware(protected))

	handler := backpressureMiddleware(mux, rt.options.MaxInFlight, rt.options.MaxWait)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.uploader.Upload(
		r.Context(),
		ownerFromContext(r.Context()),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordUpload(rt.options.ServiceName, fileHeader.Size)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.lifecycle.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.lifecycle.Get(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) previewDocument(w http.ResponseWriter, r *http.Request) {
	url, err := rt.lifecycle.PreviewURL(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"), rt.options.SignedURLTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordSignedURL(rt.options.ServiceName, "preview")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(rt.options.SignedURLTTL.Seconds()),
	})
}

func (rt *Router) approveDocument(w http.ResponseWriter, r *http.Request) {
	doc, warnings, err := rt.lifecycle.Approve(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	rt.recordTransition("approve", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse(doc, warnings))
}

func (rt *Router) rejectDocument(w http.ResponseWriter, r *http.Request) {
	doc, warnings, err := rt.lifecycle.Reject(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	rt.recordTransition("reject", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse(doc, warnings))
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request) {
	url, err := rt.lifecycle.DownloadURL(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"), rt.options.SignedURLTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordSignedURL(rt.options.ServiceName, "download")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(rt.options.SignedURLTTL.Seconds()),
	})
}

func (rt *Router) getExtraction(w http.ResponseWriter, r *http.Request) {
	rec, err := rt.extractions.GetByDocument(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	warnings, err := rt.lifecycle.Delete(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	rt.recordTransition("delete", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "warnings": warningsOrEmpty(warnings)})
}

func (rt *Router) exportExtractions(w http.ResponseWriter, r *http.Request) {
	raw, err := rt.exporter.ExportExtractionsXLSX(r.Context(), ownerFromContext(r.Context()))
	if rt.options.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		rt.options.Metrics.RecordExport(rt.options.ServiceName, status)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tax_extractions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (rt *Router) recordTransition(action string, err error) {
	if rt.options.Metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	rt.options.Metrics.RecordTransition(rt.options.ServiceName, action, status)
}

func transitionResponse(doc *domain.Document, warnings []string) map[string]any {
	return map[string]any{
		"document": doc,
		"warnings": warningsOrEmpty(warnings),
	}
}

func warningsOrEmpty(warnings []string) []string {
	if warnings == nil {
		return []string{}
	}
	return warnings
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
