package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/example/moonbaby-storefront/internal/adapter/authstate"
	"github.com/example/moonbaby-storefront/internal/domain"
)

const (
	VisitorCookie = "visitor_id"
	SessionCookie = "session"
)

// ctxKey — собственный тип ключа контекста во избежание коллизий.
type ctxKey struct{ name string }

var (
	ctxKeyVisitor = ctxKey{name: "visitor"}
	ctxKeySession = ctxKey{name: "session"}
	ctxKeyHub     = ctxKey{name: "hub"}
)

// withVisitor выдаёт посетителю постоянный идентификатор, которым изолировано его хранилище.
func (s *Server) withVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(VisitorCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				Secure:   s.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyVisitor, id)))
	})
}

// withSession разбирает сессионную cookie и открывает hub сессии запроса.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess domain.Session
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" && s.Auth != nil {
			resolved, err := s.Auth.Resolve(r.Context(), c.Value)
			switch {
			case err == nil:
				sess = resolved
			case errors.Is(err, domain.ErrUnauthenticated):
				s.Logger.Debug("stale session cookie", "err", err)
				s.clearSessionCookie(w)
			default:
				s.Logger.Error("resolve session", "err", err)
			}
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		ctx = context.WithValue(ctx, ctxKeyHub, authstate.NewHub(sess))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withGate отправляет на вход, если на защищённом пути нет сессии.
func (s *Server) withGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nav := &redirector{}
		cancel := s.Gate.Watch(hubFrom(r), r.URL.Path, nav)
		defer cancel()
		if nav.target != "" {
			http.Redirect(w, r, nav.target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirector — Navigator для HTTP: запоминает последнюю цель.
type redirector struct{ target string }

func (n *redirector) Redirect(url string) { n.target = url }

func visitorFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyVisitor).(string)
	return id
}

func sessionFrom(r *http.Request) domain.Session {
	s, _ := r.Context().Value(ctxKeySession).(domain.Session)
	return s
}

func hubFrom(r *http.Request) *authstate.Hub {
	if h, ok := r.Context().Value(ctxKeyHub).(*authstate.Hub); ok {
		return h
	}
	return authstate.NewHub(sessionFrom(r))
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
