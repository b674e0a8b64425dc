package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/moonbaby-storefront/internal/domain"
	"github.com/example/moonbaby-storefront/internal/usecase"
)

// DefaultAfterLogin — куда вести после входа без корректного redirect.
const DefaultAfterLogin = "/products.html"

type Deps struct {
	Gate     usecase.SessionGate
	Renderer usecase.ProductRenderer
	Visitors usecase.TrackVisitor
	// Auth равен nil, если провайдер идентификации недоступен; тогда все посетители анонимны.
	Auth          domain.AuthProvider
	Stores        domain.VisitorStorage
	Logger        *slog.Logger
	WebDir        string
	SessionTTL    time.Duration
	SecureCookies bool
}

type Server struct {
	Router *mux.Router

	Gate          usecase.SessionGate
	Renderer      usecase.ProductRenderer
	Visitors      usecase.TrackVisitor
	Auth          domain.AuthProvider
	Stores        domain.VisitorStorage
	Logger        *slog.Logger
	SessionTTL    time.Duration
	SecureCookies bool

	pages pages
}

func NewServer(d Deps) (*Server, error) {
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		Router:        mux.NewRouter(),
		Gate:          d.Gate,
		Renderer:      d.Renderer,
		Visitors:      d.Visitors,
		Auth:          d.Auth,
		Stores:        d.Stores,
		Logger:        d.Logger,
		SessionTTL:    d.SessionTTL,
		SecureCookies: d.SecureCookies,
		pages:         p,
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Gate.Logger == nil {
		s.Gate.Logger = s.Logger
	}

	if d.WebDir != "" {
		s.Router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(d.WebDir))))
		s.Router.PathPrefix("/images/").Handler(http.FileServer(http.Dir(d.WebDir)))
	}

	app := s.Router.NewRoute().Subrouter()
	app.Use(s.withVisitor, s.withSession, s.withGate)
	app.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	app.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	app.HandleFunc("/products.html", s.handleProducts).Methods(http.MethodGet)
	app.HandleFunc("/cart.html", s.handleCart).Methods(http.MethodGet)
	app.HandleFunc("/checkout.html", s.handleCheckout).Methods(http.MethodGet)
	app.HandleFunc("/login.html", s.handleLogin).Methods(http.MethodGet)
	app.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	app.HandleFunc("/api/session", s.handleSignIn).Methods(http.MethodPost)
	app.HandleFunc("/api/cart", s.handleAddToCart).Methods(http.MethodPost)
	app.HandleFunc("/api/cart/count", s.handleCartCount).Methods(http.MethodGet)
	return s, nil
}

func (s *Server) cartStore(r *http.Request, badge domain.CartBadge) usecase.CartStore {
	return usecase.CartStore{
		Storage: s.Stores.Storage(visitorFrom(r)),
		Badge:   badge,
		Logger:  s.Logger,
	}
}

func (s *Server) layout(r *http.Request, title string, body any) pageData {
	sess := sessionFrom(r)
	d := pageData{
		Title:    title,
		AuthLink: s.Gate.Affordance(sess),
		Body:     body,
	}
	// как и в исходной витрине, бейдж показывает 0 без сессии
	if sess.Authenticated() {
		d.CartCount = s.cartStore(r, nil).Count(r.Context())
	}
	if text, ok, err := s.Stores.Flash(visitorFrom(r)).Take(r.Context()); err != nil {
		s.Logger.Warn("read flash", "err", err)
	} else if ok {
		d.Flash = text
	}
	return d
}

type indexBody struct {
	VisitorCount string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	body := indexBody{VisitorCount: s.Visitors.Execute(r.Context())}
	s.render(w, "index.html", s.layout(r, "Home", body))
}

type filterButton struct {
	Category string
	Href     string
	Active   bool
}

type productsBody struct {
	Title   string
	Filters []filterButton
	Grid    *htmlGrid
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	active := usecase.NormalizeCategory(category)
	if active == "" {
		active = usecase.CategoryAll
	}
	body := productsBody{Title: usecase.CategoryTitle(category), Grid: &htmlGrid{}}
	for _, c := range usecase.Categories {
		href := "/products.html?category="
		if c != usecase.CategoryAll {
			href += url.QueryEscape(c)
		}
		body.Filters = append(body.Filters, filterButton{Category: c, Href: href, Active: c == active})
	}
	s.Renderer.FetchAndRender(r.Context(), body.Grid, category)
	s.render(w, "products.html", s.layout(r, body.Title, body))
}

type cartBody struct {
	Items domain.Cart
	Total int
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	items := s.cartStore(r, nil).Items(r.Context())
	s.render(w, "cart.html", s.layout(r, "Cart", cartBody{Items: items, Total: items.Count()}))
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	items := s.cartStore(r, nil).Items(r.Context())
	s.render(w, "checkout.html", s.layout(r, "Checkout", cartBody{Items: items, Total: items.Count()}))
}

type loginBody struct {
	Redirect string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := loginBody{Redirect: SafeRedirect(r.URL.Query().Get("redirect"))}
	s.render(w, "login.html", s.layout(r, "Login", body))
}

type signInRequest struct {
	IDToken  string `json:"idToken"`
	Redirect string `json:"redirect"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "sign-in unavailable"})
		return
	}
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess, token, err := s.Auth.SignIn(r.Context(), req.IDToken)
	if err != nil {
		s.Logger.Error("sign-in failed", "err", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign-in failed"})
		return
	}
	s.setSessionCookie(w, token)
	s.Logger.Info("signed in", "uid", sess.UID)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": SafeRedirect(req.Redirect)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !sess.Authenticated() || s.Auth == nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, usecase.HomePath, http.StatusSeeOther)
		return
	}
	nav := &redirector{}
	s.Gate.Logout(r.Context(), s.Auth, sess, s.cartStore(r, nil), nav)
	if nav.target == "" {
		// выход не удался: остаёмся на той же странице
		http.Redirect(w, r, refererPath(r), http.StatusSeeOther)
		return
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, nav.target, http.StatusSeeOther)
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	ReturnTo  string `json:"returnTo"`
}

type notificationJSON struct {
	Text  string `json:"text"`
	TTLMs int64  `json:"ttlMs"`
}

type addToCartResponse struct {
	Count        int               `json:"count"`
	Notification *notificationJSON `json:"notification,omitempty"`
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	returnTo := req.ReturnTo
	if returnTo == "" {
		returnTo = refererPath(r)
	}
	flash := s.Stores.Flash(visitorFrom(r))
	renderer := s.Renderer
	renderer.Notifier = flash
	badge := &badgeRecorder{}

	out, err := renderer.AddToCart(r.Context(), sessionFrom(r), s.cartStore(r, badge), req.ProductID, req.Size, SafeRedirect(returnTo))
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "productId and size are required"})
		return
	case err != nil:
		s.Logger.Error("add to cart", "product", req.ProductID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not update cart"})
		return
	case !out.Added:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": out.Alert, "redirect": out.Redirect})
		return
	}
	resp := addToCartResponse{Count: badge.count}
	// уведомление забирается из flash, чтобы следующая страница его не повторила
	if text, ok, err := flash.Take(r.Context()); err != nil {
		s.Logger.Warn("take flash", "err", err)
	} else if ok {
		resp.Notification = &notificationJSON{Text: text, TTLMs: usecase.NoticeTTL.Milliseconds()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	count := 0
	if sessionFrom(r).Authenticated() {
		count = s.cartStore(r, nil).Count(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// SafeRedirect пропускает только локальные абсолютные пути, иначе DefaultAfterLogin.
func SafeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return DefaultAfterLogin
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultAfterLogin
	}
	return u.RequestURI()
}

func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return usecase.HomePath
	}
	return ref.RequestURI()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
