package http

import (
	"fmt"
	"io"
	"net/http"

	"fintrack/internal/export"
	"fintrack/internal/log"
)

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request, owner string) {
	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	data, err := us.ctrl.ExportJSON()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.JSONMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.JSONFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)

	s.logger.InfoContext(r.Context(), "Export served",
		log.FieldOwner, owner, log.FieldOperation, log.OpExport, "format", "json")
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, owner string) {
	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.CSVMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CSVFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(us.ctrl.ExportCSV())

	s.logger.InfoContext(r.Context(), "Export served",
		log.FieldOwner, owner, log.FieldOperation, log.OpExport, "format", "csv")
}

// handleExportSheets mirrors the full transaction list to the configured
// Google spreadsheet.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request, owner string) {
	if s.sheets == nil {
		respondError(w, http.StatusServiceUnavailable, "sheets export is not configured")
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := s.sheets.Push(r.Context(), us.ctrl.State().Transactions); err != nil {
		s.logger.ErrorContext(r.Context(), "Sheets export failed",
			log.FieldOwner, owner, log.FieldError, err)
		respondError(w, http.StatusBadGateway, "sheets export failed")
		return
	}

	s.logger.InfoContext(r.Context(), "Export served",
		log.FieldOwner, owner, log.FieldOperation, log.OpExport, "format", "sheets")
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// handleImport creates every record from a JSON export under the current
// owner. A parse failure writes nothing; a mid-run store failure reports how
// far the import got.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, owner string) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read import payload")
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	res, err := us.ctrl.Import(r.Context(), data)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := importResponse{Succeeded: res.Succeeded, Failed: res.Failed}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status = http.StatusMultiStatus
	}

	s.logger.InfoContext(r.Context(), "Import finished",
		log.FieldOwner, owner, log.FieldOperation, log.OpImport,
		"succeeded", res.Succeeded, "failed", res.Failed)
	respondJSON(w, status, resp)
}
