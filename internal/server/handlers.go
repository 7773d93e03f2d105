package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/store"
)

// CreateReportRequest is the body of POST /api/reports
type CreateReportRequest struct {
	Dictation string           `json:"dictation"`
	Sex       string           `json:"sex,omitempty"`
	Study     *model.StudyInfo `json:"study,omitempty"`
}

// ReportResponse carries a stored report and its Markdown rendering
type ReportResponse struct {
	ID       string        `json:"id"`
	Report   *model.Report `json:"report"`
	Markdown string        `json:"markdown"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Dictation) == "" {
		writeError(w, http.StatusBadRequest, "dictation is required")
		return
	}

	report, err := s.generator.GenerateReport(r.Context(), pipeline.Request{
		Dictation: req.Dictation,
		Sex:       model.ParseSex(req.Sex),
		Study:     req.Study,
	})
	if err != nil {
		s.logger.Warn("report generation aborted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "report generation aborted")
		return
	}

	id, err := s.store.Save(r.Context(), report)
	if err != nil {
		s.logger.Error("saving report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving report failed")
		return
	}

	writeJSON(w, http.StatusCreated, ReportResponse{
		ID:       id,
		Report:   report,
		Markdown: s.renderer.Markdown(report),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := s.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.logger.Error("loading report failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading report failed")
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(s.renderer.Markdown(report) + "\n"))
		return
	}

	writeJSON(w, http.StatusOK, ReportResponse{
		ID:       id,
		Report:   report,
		Markdown: s.renderer.Markdown(report),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) handleCatalogSection(w http.ResponseWriter, r *http.Request) {
	section, ok := s.catalog.Lookup(model.SectionKey(chi.URLParam(r, "key")))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown section")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "model": "unchecked"}
	code := http.StatusOK

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if s.pinger.Ping(ctx) {
			status["model"] = "available"
		} else {
			status["status"] = "degraded"
			status["model"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
