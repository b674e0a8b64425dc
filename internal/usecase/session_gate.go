package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"path"

	"github.com/example/moonbaby-storefront/internal/domain"
)

const (
	LoginPath  = "/login.html"
	LogoutPath = "/logout"
	HomePath   = "/"
)

// DefaultProtectedPaths — страницы, требующие активной сессии.
var DefaultProtectedPaths = []string{"/cart.html", "/checkout.html"}

// AuthLink — подпись и адрес ссылки входа/выхода.
type AuthLink struct {
	Label string
	Href  string
}

// SessionGate — защита маршрутов и сценарий выхода.
type SessionGate struct {
	// Protected — шаблоны path.Match.
	Protected []string
	Logger    *slog.Logger
}

func (g SessionGate) IsProtected(p string) bool {
	for _, pattern := range g.patterns() {
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

// LoginURL строит адрес входа с returnTo в параметре redirect.
func LoginURL(returnTo string) string {
	if returnTo == "" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(returnTo)
}

// Watch подписывается на изменения сессии и уводит на вход с защищённой страницы при её отсутствии.
func (g SessionGate) Watch(src domain.SessionSource, currentPath string, nav domain.Navigator) (cancel func()) {
	protected := g.IsProtected(currentPath)
	return src.Subscribe(func(s domain.Session) {
		if protected && !s.Authenticated() {
			nav.Redirect(LoginURL(currentPath))
		}
	})
}

func (g SessionGate) Affordance(s domain.Session) AuthLink {
	if s.Authenticated() {
		return AuthLink{Label: "Logout", Href: LogoutPath}
	}
	return AuthLink{Label: "Login", Href: LoginPath}
}

// CartClearer — часть корзины, нужная для выхода.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Logout: выход, очистка корзины, переход на главную. Ошибка выхода логируется, состояние не меняется.
func (g SessionGate) Logout(ctx context.Context, auth domain.AuthProvider, s domain.Session, cart CartClearer, nav domain.Navigator) {
	if err := auth.SignOut(ctx, s); err != nil {
		g.logger().Error("logout", "uid", s.UID, "err", err)
		return
	}
	if err := cart.Clear(ctx); err != nil {
		g.logger().Error("logout: clear cart", "uid", s.UID, "err", err)
	}
	nav.Redirect(HomePath)
}

func (g SessionGate) patterns() []string {
	if g.Protected == nil {
		return DefaultProtectedPaths
	}
	return g.Protected
}

func (g SessionGate) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
