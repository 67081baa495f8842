package backend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/dealAuth/middleware"
	"github.com/MrEthical07/dealAuth/remote"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewRouter exposes svc over HTTP.
//
//	POST /auth/signin          {email, password}
//	POST /auth/signup          {email, password}
//	POST /auth/signout         bearer
//	GET  /auth/session         bearer
//	POST /auth/reset           {email}
//	POST /auth/reset/confirm   {token, password}
//	POST /auth/verify          {token}
//	GET  /profiles?id=|?email=
//	POST /profiles             profile row
func NewRouter(svc *Service) http.Handler {
	h := &handler{svc: svc, logger: svc.logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(svc.config.APIKey))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", h.signIn)
			r.Post("/signup", h.signUp)
			r.Post("/reset", h.requestReset)
			r.Post("/reset/confirm", h.confirmReset)
			r.Post("/verify", h.verifyEmail)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Guard(svc))
				r.Get("/session", h.session)
				r.Post("/signout", h.signOut)
			})
		})

		r.Get("/profiles", h.queryProfiles)
		r.Post("/profiles", h.insertProfile)
	})

	return r
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req remote.CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	cred, err := h.svc.SignIn(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, remote.NewCredentialResponse(cred))
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req remote.CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	cred, err := h.svc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, remote.NewCredentialResponse(cred))
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	cred, _ := middleware.CredentialFromContext(r.Context())
	respondJSON(w, http.StatusOK, remote.NewCredentialResponse(cred))
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromContext(r.Context())
	if err := h.svc.SignOut(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req remote.ResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type confirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *handler) confirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryProfiles answers like a row query: always a JSON array, empty when
// nothing matches.
func (h *handler) queryProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		p   remote.Profile
		ok  bool
		err error
	)
	switch {
	case q.Get("id") != "":
		p, ok, err = h.svc.ProfileByID(r.Context(), q.Get("id"))
	case q.Get("email") != "":
		p, ok, err = h.svc.ProfileByEmail(r.Context(), q.Get("email"))
	default:
		respondError(w, http.StatusBadRequest, "id or email query parameter is required")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rows := []remote.Profile{}
	if ok {
		rows = append(rows, p)
	}
	respondJSON(w, http.StatusOK, rows)
}

// insertProfile accepts rows on the API key alone, since sign-ups that wait
// for email verification have no session yet. A request that does carry a
// bearer token may only create the row of its own user.
func (h *handler) insertProfile(w http.ResponseWriter, r *http.Request) {
	var p remote.Profile
	if !h.decode(w, r, &p) {
		return
	}
	if token, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		cred, err := h.svc.Session(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if cred.UserID != p.ID {
			h.fail(w, r, ErrForbidden)
			return
		}
	}
	if err := h.svc.InsertProfile(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, ErrEmailNotVerified), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrProfileExists):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, remote.ErrorResponse{Error: msg})
}
