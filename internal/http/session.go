package http

import (
	"context"
	"net/http"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/session"
)

// SessionCookie names the cookie carrying the visitor's session ID.
const SessionCookie = "ahorro_session"

type sessionKey struct{}

// withSession resolves the visitor's session, creating one (and its cookie)
// on first visit or after expiry.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, created, err := s.sessions.GetOrCreate(r.Context(), id)
		if err != nil {
			log.NewStructuredLogger(s.logger).LogError(r.Context(), "Failed to open session", err, log.OpSession, nil)
			InternalServerError(s.tr.T(s.sessions.DefaultLanguage(), "err_generic")).Write(w)
			return
		}
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = log.IntoContext(ctx, log.FromContext(ctx).With(log.FieldSessionID, sess.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

// requestLanguage is the language for responses written outside withSession,
// such as 404s and rate-limit rejections. It never creates a session.
func (s *Server) requestLanguage(r *http.Request) core.Language {
	sess := sessionFrom(r.Context())
	if sess == nil {
		if c, err := r.Cookie(SessionCookie); err == nil {
			sess, _ = s.sessions.Get(c.Value)
		}
	}
	if sess == nil {
		return s.sessions.DefaultLanguage()
	}
	return stateOf(sess).lang
}
