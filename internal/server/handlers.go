package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/storage"
	"github.com/sw33tLie/playscope/pkg/whttp"
)

const defaultSearchResults = 30

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps store and database errors to a status code.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, play.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, whttp.ErrNotFound), errors.Is(err, storage.ErrNotTracked):
		status = http.StatusNotFound
	default:
		var httpErr *whttp.HTTPError
		if errors.As(err, &httpErr) {
			status = http.StatusBadGateway
		}
	}
	http.Error(w, err.Error(), status)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.DB.ListApps(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, apps)
}

type TrackRequest struct {
	AppID   string `json:"app_id"`
	Lang    string `json:"lang"`
	Country string `json:"country"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	appID := play.NormalizeAppID(req.AppID)
	if appID == "" {
		http.Error(w, "missing app_id", http.StatusBadRequest)
		return
	}
	lang, country := req.Lang, req.Country
	if lang == "" {
		lang = play.DefaultLang
	}
	if country == "" {
		country = play.DefaultCountry
	}
	if err := play.ValidateLocale(lang, country); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.DB.TrackApp(r.Context(), appID, lang, country); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"app_id": appID})
}

func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.DB.UntrackApp(r.Context(), play.NormalizeAppID(req.AppID)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ReviewListOptions{AppID: play.NormalizeAppID(q.Get("app"))}
	var err error
	if opts.MinScore, err = intParam(r, "min_score", 0); err != nil {
		http.Error(w, "bad min_score", http.StatusBadRequest)
		return
	}
	if opts.MaxScore, err = intParam(r, "max_score", 0); err != nil {
		http.Error(w, "bad max_score", http.StatusBadRequest)
		return
	}
	if opts.Limit, err = intParam(r, "limit", 100); err != nil {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return
	}

	reviews, err := s.DB.ListReviews(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, reviews)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return
	}
	changes, err := s.DB.ListRecentChanges(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, changes)
}

func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rec, err := s.Store.App(r.Context(), r.PathValue("id"), q.Get("lang"), q.Get("country"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		http.Error(w, "missing q", http.StatusBadRequest)
		return
	}
	n, err := intParam(r, "n", defaultSearchResults)
	if err != nil {
		http.Error(w, "bad n", http.StatusBadRequest)
		return
	}
	results, err := s.Store.Search(r.Context(), query, n, q.Get("lang"), q.Get("country"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, results)
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perms, err := s.Store.Permissions(r.Context(), r.PathValue("id"), q.Get("lang"), q.Get("country"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, perms)
}
