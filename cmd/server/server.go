package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Simplici0/voltquote/internal/accounts"
	"github.com/Simplici0/voltquote/internal/catalogue"
	"github.com/Simplici0/voltquote/internal/migrations"
	"github.com/Simplici0/voltquote/internal/quotes"
)

type server struct {
	logger    *slog.Logger
	db        *sql.DB
	auth      *authService
	accounts  *accounts.Store
	catalogue *catalogue.Store
	quotes    *quotes.Service
}

func (s *server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.authMiddleware)

			r.Get("/me", s.handleMe)
			r.Get("/products/batteries", s.handleListBatteries)
			r.Get("/products/inverters", s.handleListInverters)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(accounts.RoleAdmin))
				r.Get("/manufacturers", s.handleListManufacturers)
				r.Post("/manufacturers", s.handleCreateManufacturer)
				r.Post("/batteries", s.handleCreateBattery)
				r.Put("/batteries/{id}", s.handleUpdateBattery)
				r.Post("/inverters", s.handleCreateInverter)
				r.Put("/inverters/{id}", s.handleUpdateInverter)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.With(requireRole(accounts.RoleInstaller, accounts.RoleAssessor)).Get("/", s.handleListQuotes)
				r.With(requireRole(accounts.RoleInstaller, accounts.RoleAssessor)).Get("/{id}", s.handleGetQuote)
				r.With(requireRole(accounts.RoleInstaller, accounts.RoleAssessor)).Get("/{id}/text", s.handleQuoteText)

				r.Group(func(r chi.Router) {
					r.Use(requireRole(accounts.RoleInstaller))
					r.Post("/preview", s.handlePreviewQuote)
					r.Post("/", s.handleCreateQuote)
					r.Put("/{id}", s.handleUpdateQuote)
					r.Post("/{id}/status", s.handleQuoteStatus)
				})
			})

			r.With(requireRole(accounts.RoleInstaller)).Get("/stats", s.handleStats)
		})
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := migrations.Version(s.db)
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "schema_version": version})
}

type loginRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     accounts.Role `json:"role"`
}

type loginResponse struct {
	User    accounts.User     `json:"user"`
	Company *accounts.Company `json:"company,omitempty"`
	Token   string            `json:"token"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be admin, installer or assessor")
		return
	}

	user, token, err := s.auth.login(r.Context(), req.Email, req.Password, req.Role)
	if isInvalidCredentials(err) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email, password or role")
		return
	}
	if err != nil {
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "authentication error")
		return
	}

	resp := loginResponse{User: user, Token: token}
	if user.CompanyID != "" {
		company, err := s.accounts.CompanyByID(r.Context(), user.CompanyID)
		if err != nil {
			s.logger.Error("load company for login", "error", err, "company_id", user.CompanyID)
			writeError(w, http.StatusInternalServerError, "internal", "authentication error")
			return
		}
		resp.Company = &company
	}

	s.auth.setSessionCookie(w, token)
	s.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    sess.UserID,
		"name":       sess.Name,
		"role":       sess.Role,
		"company_id": sess.CompanyID,
	})
}
