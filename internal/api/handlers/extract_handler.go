package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pranay-lamse/crimedigest/internal/config"
	db "github.com/pranay-lamse/crimedigest/internal/core/database"
	"github.com/pranay-lamse/crimedigest/internal/core/extraction"
	objectclient "github.com/pranay-lamse/crimedigest/internal/core/object-client"
	"github.com/pranay-lamse/crimedigest/internal/models"
)

// pdfPrefix is the bucket prefix all uploaded report PDFs live under.
const pdfPrefix = "reports/"

type ExtractHandler struct {
	dbclient     db.DbClient
	objectclient objectclient.ObjectClient
	pipeline     *extraction.Pipeline
	cfg          *config.Config
}

func NewExtractHandler(dbclient db.DbClient, objectclient objectclient.ObjectClient, pipeline *extraction.Pipeline, cfg *config.Config) *ExtractHandler {
	return &ExtractHandler{dbclient: dbclient, objectclient: objectclient, pipeline: pipeline, cfg: cfg}
}

// allowedFile checks if the file extension is allowed. Only PDFs are.
func allowedFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// ExtractUpload accepts a PDF upload, stores it in the bucket, and runs the
// extraction pipeline against it, streaming progress events as NDJSON
// unless the caller asked for a batched response.
func (h *ExtractHandler) ExtractUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !allowedFile(header.Filename) {
		http.Error(w, "only PDF files are allowed", http.StatusBadRequest)
		return
	}

	pdf, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	// Sanitize filename to prevent path traversal or invalid characters
	cleanFilename := filepath.Base(header.Filename)
	key := fmt.Sprintf("%s%s/%s", pdfPrefix, uuid.NewString(), cleanFilename)

	if _, err := h.objectclient.UploadFile(r.Context(), h.cfg.BucketName, key, pdf, "application/pdf"); err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	h.runAndRespond(w, r, pdf, cleanFilename)
}

// ExtractSaved re-runs extraction for a previously uploaded PDF. Combined
// with a report_id whose pages were partially persisted, this resumes the
// run from the page after the high-water mark.
func (h *ExtractHandler) ExtractSaved(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(chi.URLParam(r, "filename"))

	pdfs, err := h.objectclient.ListPDFs(r.Context(), h.cfg.BucketName, pdfPrefix)
	if err != nil {
		http.Error(w, fmt.Sprintf("list failed: %v", err), http.StatusInternalServerError)
		return
	}

	var key string
	for _, p := range pdfs {
		if p.Name == filename {
			key = p.Key
			break
		}
	}
	if key == "" {
		http.Error(w, "PDF file not found", http.StatusNotFound)
		return
	}

	pdf, err := h.objectclient.GetFile(r.Context(), h.cfg.BucketName, key)
	if err != nil {
		http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	h.runAndRespond(w, r, pdf, filename)
}

// ListPDFs lists all uploaded report PDFs, newest first.
func (h *ExtractHandler) ListPDFs(w http.ResponseWriter, r *http.Request) {
	pdfs, err := h.objectclient.ListPDFs(r.Context(), h.cfg.BucketName, pdfPrefix)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"count":   len(pdfs),
		"pdfs":    pdfs,
	})
}

// runAndRespond assembles the run job from the request form and drives the
// pipeline, either streaming events or collecting them into one response.
func (h *ExtractHandler) runAndRespond(w http.ResponseWriter, r *http.Request, pdf []byte, filename string) {
	job := extraction.RunJob{
		Prompt:  r.FormValue("prompt"),
		Year:    formInt(r, "year"),
		Month:   formInt(r, "month"),
		Persist: formBool(r, "persist", true),
	}

	if job.Persist {
		if id := int64(formInt(r, "report_id")); id > 0 {
			job.ReportID = id
		} else {
			report := &models.ReportUpload{FileName: filename, Year: job.Year, Month: job.Month}
			if err := h.dbclient.CreateReport(r.Context(), report); err != nil {
				http.Error(w, fmt.Sprintf("failed to register report: %v", err), http.StatusInternalServerError)
				return
			}
			job.ReportID = report.ID
		}
	}

	if formBool(r, "stream", true) {
		h.streamRun(w, r, pdf, job)
		return
	}

	summary, err := h.pipeline.Run(r.Context(), pdf, job, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("processing failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"filename":    filename,
		"report_id":   job.ReportID,
		"total_pages": summary.TotalPages,
		"data":        summary.Pages,
	})
}

// streamRun writes the event sequence as NDJSON, flushing after every
// event so the caller sees pages as they complete.
func (h *ExtractHandler) streamRun(w http.ResponseWriter, r *http.Request, pdf []byte, job extraction.RunJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	events := make(chan models.StreamEvent, 8)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		defer close(events)
		_, err := h.pipeline.Run(gctx, pdf, job, events)
		return err
	})

	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			// Caller went away; the pipeline notices via context.
			break
		}
		flusher.Flush()
	}

	if err := g.Wait(); err != nil {
		log.Printf("extraction run for report %d ended with error: %v", job.ReportID, err)
	}
}

func formInt(r *http.Request, key string) int {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func formBool(r *http.Request, key string, def bool) bool {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
