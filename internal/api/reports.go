package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/vme-thermal/internal/monitor"
	"github.com/nerrad567/vme-thermal/internal/report"
)

// handleTriggerReport runs one measure-and-report cycle immediately.
//
// A publish failure still answers 200: the report was written and the batch
// is returned alongside the error.
func (s *Server) handleTriggerReport(w http.ResponseWriter, r *http.Request) {
	batch, err := s.monitor.Cycle(r.Context())
	if err != nil && !errors.Is(err, monitor.ErrPublish) {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("report triggered via API", "records", len(batch.Records), "by", subject(r.Context()))

	resp := map[string]any{"batch": batch}
	if err != nil {
		resp["publish_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLatestReport returns the most recent batch held in memory.
func (s *Server) handleLatestReport(w http.ResponseWriter, _ *http.Request) {
	batch, ok := s.monitor.LastBatch()
	if !ok {
		writeNotFound(w, "no report has been produced yet")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// handleListReports pages through the archive, newest first.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeNotFound(w, "report archive is not enabled")
		return
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil || offset < 0 {
		writeBadRequest(w, "invalid offset")
		return
	}

	result, err := s.archive.List(r.Context(), report.Filter{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("listing archived reports", "error", err)
		writeInternalError(w, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeNotFound(w, "report archive is not enabled")
		return
	}

	stored, err := s.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, report.ErrNotFound) {
			s.logger.Error("reading archived report", "error", err)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// intQuery parses an optional integer query parameter; absent means 0.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
