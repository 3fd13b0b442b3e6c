package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/recommend"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/openskills/openskills/pkg/telemetry"
	"github.com/openskills/openskills/pkg/version"
	"go.opentelemetry.io/otel/attribute"
)

const (
	filesErrorMessage     = "Failed to read skill files"
	downloadErrorMessage  = "Failed to download skill"
	recommendErrorMessage = "Failed to recommend skill"
	skillNotFoundMessage  = "Skill not found"

	maxRequestBodyBytes = 1 << 20
)

// FilesResponse is the body of GET /api/skills/{id}/files.
type FilesResponse struct {
	Files []skillfs.FileEntry `json:"files"`
}

// TreeResponse is the body of GET /api/skills/{id}/tree.
type TreeResponse struct {
	Tree []*skillfs.TreeNode `json:"tree"`
}

// RecommendRequest is the body of POST /api/recommend-skill. Prompt is
// decoded loosely so that a non-string value is reported as a validation
// error rather than a decode failure.
type RecommendRequest struct {
	Prompt any `json:"prompt"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// handleListSkills handles GET /api/skills
func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := catalog.ListRequest{
		Query:    query.Get("q"),
		Owner:    query.Get("owner"),
		Category: query.Get("category"),
		Tag:      query.Get("tag"),
	}

	response := catalog.List(s.catalog, req)
	telemetry.SetAttributes(r.Context(), attribute.Int("skills.count", response.Count))

	s.writeJSONResponse(w, r, http.StatusOK, response)
}

// handleFacets handles GET /api/skills/facets
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, r, http.StatusOK, catalog.BuildFacets(s.catalog))
}

// handleGetSkill handles GET /api/skills/{id}
func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	skill, ok := s.catalog.Get(id)
	if !ok {
		s.writeErrorResponse(w, r, http.StatusNotFound, skillNotFoundMessage, nil)
		return
	}

	s.writeJSONResponse(w, r, http.StatusOK, skill)
}

// handleListFiles handles GET /api/skills/{id}/files
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.ListFiles(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeAPIError(w, r, err, filesErrorMessage)
		return
	}

	telemetry.SetAttributes(r.Context(), attribute.Int("skill.files", len(files)))
	s.writeJSONResponse(w, r, http.StatusOK, FilesResponse{Files: files})
}

// handleFileTree handles GET /api/skills/{id}/tree
func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.ListFiles(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeAPIError(w, r, err, filesErrorMessage)
		return
	}

	s.writeJSONResponse(w, r, http.StatusOK, TreeResponse{Tree: skillfs.BuildTree(files)})
}

// handleDownload handles GET /api/download/{id}. The archive is built in
// full before any byte is written so a failure never yields a partial zip.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	archive, err := s.files.BuildArchive(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, r, err, downloadErrorMessage)
		return
	}

	filename := skillfs.ArchiveFilename(s.catalog, id)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(archive); err != nil {
		logger.G(r.Context()).WithError(err).Warn("failed to write archive")
	}
}

// handleRecommend handles POST /api/recommend-skill
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	prompt, ok := decodePrompt(io.LimitReader(r.Body, maxRequestBodyBytes))
	if !ok {
		s.writeErrorResponse(w, r, http.StatusBadRequest, recommend.InvalidPromptMessage, nil)
		return
	}

	recommendation, err := s.recommender.Recommend(r.Context(), prompt)
	if err != nil {
		s.writeAPIError(w, r, err, recommendErrorMessage)
		return
	}

	if recommendation.RecommendedSkill != nil {
		telemetry.SetAttributes(r.Context(),
			attribute.String("skill.id", recommendation.RecommendedSkill.ID),
			attribute.Float64("skill.match_score", recommendation.RecommendedSkill.MatchScore),
		)
	}

	s.writeJSONResponse(w, r, http.StatusOK, recommendation)
}

// decodePrompt returns the prompt of a RecommendRequest body. It reports
// false for malformed JSON and for a missing, non-string or blank prompt.
func decodePrompt(body io.Reader) (string, bool) {
	var req RecommendRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return "", false
	}

	prompt, ok := req.Prompt.(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return "", false
	}

	return prompt, true
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Get().Version,
	})
}
