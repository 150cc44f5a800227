package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/gridmap/internal/config"
	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/runner"
	"github.com/JonMunkholm/gridmap/internal/source"
	"github.com/JonMunkholm/gridmap/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type healthResponse struct {
	Status    string               `json:"status"`
	Database  bool                 `json:"database"`
	Pipelines int                  `json:"pipelines"`
	Runs      runner.LimiterStatus `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Database:  s.runner.Persistent(),
		Pipelines: s.pipelines.Len(),
		Runs:      s.runner.LimiterStatus(),
	})
}

// pipelineInfo is the public view of a configured pipeline.
type pipelineInfo struct {
	Name         string      `json:"name"`
	Source       source.Spec `json:"source"`
	HeaderOffset *int        `json:"header_offset"`
	Fields       []string    `json:"fields"`
	Target       string      `json:"target,omitempty"`
}

func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	list := s.pipelines.List()
	out := make([]pipelineInfo, 0, len(list))
	for _, p := range list {
		out = append(out, pipelineInfo{
			Name:         p.Name,
			Source:       p.Source,
			HeaderOffset: p.HeaderOffset,
			Fields:       core.Fields(p.Specs()),
			Target:       p.Target,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.pipelines.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	rep, err := s.runner.RunPipeline(r.Context(), p)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleTransform runs an uploaded grid. Form fields:
//
//	file    the grid (csv, tsv, xlsx or ValueRange json)
//	config  a pipeline document (YAML or JSON) without source.path
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Transform.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid form: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	p, err := config.ParsePipeline([]byte(r.FormValue("config")), s.cfg.Transform.HeaderOffset)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		p.Name = "upload"
	}

	spec := p.Source
	spec.Path = header.Filename
	grid, err := source.Read(r.Context(), file, spec)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	rep, err := s.runner.Run(r.Context(), p, grid)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondError(w, r, fmt.Errorf("runs are not persisted: %w", store.ErrRunNotFound), http.StatusNotFound)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("invalid run id: %w", store.ErrRunNotFound), http.StatusNotFound)
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
