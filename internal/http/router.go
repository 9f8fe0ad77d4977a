package http

import (
	"net/http"

	"guestbot/internal/auth"
	"guestbot/internal/config"
	"guestbot/internal/directory"
	"guestbot/internal/http/handler"
	mw "guestbot/internal/http/middleware"
	"guestbot/internal/pushes"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/login", ah.Login)

	pushRepo := &pushes.Repo{DB: db}
	ph := &handler.PushHandler{Repo: pushRepo}
	dh := &handler.DirectoryHandler{Users: &directory.Repo{DB: db}, Pushes: pushRepo}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(jwtSvc))

		r.Get("/stats", dh.Stats)
		r.Get("/users", dh.ListUsers)

		r.Route("/pushes", func(r chi.Router) {
			r.Post("/", ph.Create)
			r.Get("/", ph.List)
			r.Get("/{id}", ph.Get)
			r.Get("/{id}/logs", ph.Logs)
		})
	})

	return r
}
