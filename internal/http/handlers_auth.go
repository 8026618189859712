package http

import (
	"errors"
	"net/http"
	"time"

	"expenses/internal/log"
	"expenses/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	user, err := s.auth.Register(r.Context(), p.Get("name"), p.Get("email"), p.Get("password"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			writeError(w, r, err, msgAllFieldsRequired)
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, r, err, "User with email already exists")
		default:
			writeError(w, r, err, "")
		}
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered",
		log.FieldUserID, user.ID, log.FieldOperation, log.OpRegister)
	NewResponse().Status(http.StatusCreated).Data(user).Message("User registered successfully").Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	token, expires, user, err := s.auth.Login(r.Context(), p.Get("email"), p.Get("password"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			writeError(w, r, err, msgAllFieldsRequired)
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, r, err, "Invalid email or password")
		default:
			writeError(w, r, err, "")
		}
		return
	}

	NewResponse().
		Cookie(s.sessionCookie(token, expires)).
		Data(map[string]any{"user": user, "token": token, "expiresAt": expires}).
		Message("User logged in successfully").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c := s.sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	NewResponse().Cookie(c).Message("User logged out successfully").Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	NewResponse().Data(user).Message("User retrieved successfully").Write(w)
}

func (s *Server) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	// Cross-site cookies are only sent with SameSite=None, which
	// browsers accept over HTTPS only.
	if s.opts.SecureCookies && s.opts.CORSOrigin != "" {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}
