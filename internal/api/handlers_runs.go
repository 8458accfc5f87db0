package api

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/export"
	"github.com/dgallion1/pdfqa/internal/pipeline"
)

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	up, code, err := s.readUpload(w, r, true)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	defer r.MultipartForm.RemoveAll()

	run := pipeline.NewRun(up.filename)
	run.Manual = up.manual
	if v := r.FormValue("force"); v != "" {
		run.Force, _ = strconv.ParseBool(v)
	}
	if v := r.FormValue("strategy"); v != "" {
		strategy, err := answer.ParseStrategy(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		run.Strategy = strategy
	}
	run.SetFileData(up.data)

	if err := s.orchestrator.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":   run.ID,
		"status":   run.Status(),
		"total":    s.orchestrator.Runner().Bank().Len(),
		"poll_url": fmt.Sprintf("/api/runs/%s", run.ID),
	})
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *pipeline.Run {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
	}
	return run
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	resp := map[string]any{"run": run.Snapshot()}
	if r.URL.Query().Get("answers") == "true" {
		resp["answers"] = run.Answers()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStopRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	run.RequestStop()
	s.log.Info("stop requested", "run_id", run.ID, "status", run.Status())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id": run.ID,
		"status": run.Status(),
	})
}

func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !run.Exportable() {
		jsonError(w, fmt.Sprintf("run is %s; stop it or wait for it to finish", run.Status()), http.StatusConflict)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, run.Answers()); err != nil {
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := run.MarkExported(); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}

	name := strings.TrimSuffix(run.Filename, filepath.Ext(run.Filename)) + "-answers." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	bank := s.orchestrator.Runner().Bank()
	writeJSON(w, http.StatusOK, map[string]any{
		"title":     bank.Title,
		"count":     bank.Len(),
		"questions": bank.Questions(),
	})
}
