package server

import (
	"context"
	"net/http"

	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/sw33tLie/playscope/pkg/storage"
)

// Store is the live storefront side of the API. *play.Client implements it.
type Store interface {
	App(ctx context.Context, appID, lang, country string) (extract.Record, error)
	Search(ctx context.Context, query string, n int, lang, country string) ([]extract.Record, error)
	Permissions(ctx context.Context, appID, lang, country string) (map[string][]string, error)
}

type Server struct {
	DB       *storage.DB
	Store    Store
	Username string
	Password string
}

func New(db *storage.DB, store Store, user, pass string) *Server {
	return &Server{
		DB:       db,
		Store:    store,
		Username: user,
		Password: pass,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Stored data
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/apps", s.basicAuth(s.handleApps))
	mux.HandleFunc("POST /api/apps/track", s.basicAuth(s.handleTrack))
	mux.HandleFunc("DELETE /api/apps/track", s.basicAuth(s.handleUntrack))
	mux.HandleFunc("GET /api/reviews", s.basicAuth(s.handleReviews))
	mux.HandleFunc("GET /api/changes", s.basicAuth(s.handleChanges))

	// Live lookups
	mux.HandleFunc("GET /api/app/{id}", s.basicAuth(s.handleApp))
	mux.HandleFunc("GET /api/search", s.basicAuth(s.handleSearch))
	mux.HandleFunc("GET /api/permissions/{id}", s.basicAuth(s.handlePermissions))

	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
