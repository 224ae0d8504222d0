package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/hikeplanner/internal/config"
	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &req)
}

func (s *Server) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req *models.SearchRequest) {
	s.logger.Debug("search request", zap.String("query", req.Query), zap.String("sort_by", string(req.SortBy)))
	result, err := s.svc.Search(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	explanation, err := s.svc.Explain(&req, r.URL.Query().Get("dialect"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	found, err := s.svc.FindTopRated(r.Context(), r.URL.Query().Get("region"), limit)
	s.respondTrails(w, found, err)
}

func (s *Server) handleRecommended(w http.ResponseWriter, r *http.Request) {
	rec, err := recommendationFromQuery(r.URL.Query())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	found, err := s.svc.FindRecommended(r.Context(), *rec)
	s.respondTrails(w, found, err)
}

func (s *Server) handleByDifficulty(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	d := models.Difficulty(chi.URLParam(r, "difficulty"))
	found, err := s.svc.FindByDifficulty(r.Context(), d, limit)
	s.respondTrails(w, found, err)
}

func (s *Server) handleByPark(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	found, err := s.svc.FindByPark(r.Context(), chi.URLParam(r, "park"), limit)
	s.respondTrails(w, found, err)
}

func (s *Server) handleByRegion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit")
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	result, err := s.svc.FindByRegion(r.Context(), chi.URLParam(r, "region"), offset, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateTrail(w http.ResponseWriter, r *http.Request) {
	var input models.Trail
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.svc.Create(r.Context(), &input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.logger.Debug("trail created", zap.String("id", created.ID), zap.String("region", created.PartitionKey))
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTrail(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "region"))
	s.respondTrail(w, t, err)
}

func (s *Server) handleUpdateTrail(w http.ResponseWriter, r *http.Request) {
	var input models.Trail
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.svc.Update(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "region"), &input)
	s.respondTrail(w, t, err)
}

func (s *Server) handleDeleteTrail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete trail request", zap.String("id", id))
	if err := s.svc.Delete(r.Context(), id, chi.URLParam(r, "region")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.svc.UpdateRating(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "region"), req.Rating)
	s.respondTrail(w, t, err)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Deactivate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "region"))
	s.respondTrail(w, t, err)
}

func (s *Server) handleReactivate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Reactivate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "region"))
	s.respondTrail(w, t, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"trails":        stats.Trails,
		"active_trails": stats.ActiveTrails,
		"driver":        stats.Driver,
	}
	if n, ok, err := s.svc.IndexedTrails(); err != nil {
		s.logger.Warn("status: index count failed", zap.Error(err))
	} else if ok {
		resp["indexed_trails"] = n
	}

	st := s.config.Storage
	search := s.config.Search
	resp["config"] = map[string]interface{}{
		"search_backend":   search.Backend,
		"default_limit":    search.DefaultLimit,
		"max_limit":        search.MaxLimit,
		"default_sort":     search.DefaultSort,
		"default_order":    search.DefaultOrder,
		"bleve_index_path": st.BleveIndexPath,
	}
	dbPath := ""
	if st.Driver == config.DriverSQLite {
		dbPath = st.DatabasePath
	}
	if diskBytes, err := storage.DiskUsage(dbPath, st.BleveIndexPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImportDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "import watching not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type directoryAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleImportDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "import watching not enabled")
		return
	}
	var req directoryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("import add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("import add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleImportDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "import watching not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("import remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("import remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistDirectories writes the watched directories back to the config file.
func (s *Server) persistDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Import.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist import directories", zap.Error(err))
	}
}

func (s *Server) respondTrail(w http.ResponseWriter, t *models.Trail, err error) {
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) respondTrails(w http.ResponseWriter, found []*models.Trail, err error) {
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if found == nil {
		found = []*models.Trail{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"trails": found, "count": len(found)})
}

// respondServiceError maps validation failures to 400 and missing trails to 404.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "trail not found")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
