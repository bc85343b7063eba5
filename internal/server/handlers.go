package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/version"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// versionsResponse wraps a package's ordered version list.
type versionsResponse struct {
	ID       string   `json:"id"`
	Versions []string `json:"versions"`
}

// latestResponse names the newest version of a package.
type latestResponse struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// searchResponse wraps the search hits for one query.
type searchResponse struct {
	Query   string                  `json:"query"`
	Results []registry.SearchResult `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze resolves every dependency of the manifest at ?path=.
// Unusable paths yield an empty result, not an error; only cancellation
// and storage exhaustion surface.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "missing path parameter"))
		return
	}

	deps, err := s.cfg.Analyzer.Analyze(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	if term == "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "missing q parameter"))
		return
	}

	results, err := s.cfg.Query.Search(r.Context(), term,
		boolParam(q.Get("prerelease")), intParam(q.Get("skip"), 0), intParam(q.Get("take"), registry.DefaultTake))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []registry.SearchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: term, Results: results})
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	versions, err := s.cfg.Query.VersionsOrdered(r.Context(), id, filterParam(r.URL.Query().Get("prerelease")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versionsResponse{ID: id, Versions: versions})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	latest, ok, err := s.cfg.Query.LatestVersion(r.Context(), id, filterParam(r.URL.Query().Get("prerelease")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, apperrors.New(apperrors.ErrCodePackageNotFound, "no matching version of %s found", id))
		return
	}
	writeJSON(w, http.StatusOK, latestResponse{ID: id, Version: latest})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ver := chi.URLParam(r, "version")

	meta, err := s.cfg.Query.Metadata(r.Context(), id, ver)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if meta == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodePackageNotFound, "version %s of %s not found", ver, id))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto an HTTP status and writes the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, httpStatus(err), errorResponse{
		Error:     apperrors.UserMessage(err),
		Code:      string(apperrors.GetCode(err)),
		RequestID: RequestID(r.Context()),
	})
}

// httpStatus maps error codes onto HTTP statuses.
func httpStatus(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrCodePackageNotFound),
		apperrors.Is(err, apperrors.ErrCodeNotFound),
		apperrors.Is(err, apperrors.ErrCodeFileNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrCodeInvalidInput),
		apperrors.Is(err, apperrors.ErrCodeInvalidPackage),
		apperrors.Is(err, apperrors.ErrCodeInvalidVersion),
		apperrors.Is(err, apperrors.ErrCodeInvalidPath),
		apperrors.Is(err, apperrors.ErrCodeInvalidManifest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// boolParam parses a query flag; absent or malformed means false.
func boolParam(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}

// intParam parses a numeric query parameter with a fallback.
func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// filterParam maps the prerelease query flag onto a version filter.
func filterParam(s string) version.Filter {
	if boolParam(s) {
		return version.IncludingPrerelease
	}
	return version.Stable
}
