package firebaseauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// Client — используемая часть *auth.Client Firebase.
type Client interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookieAndCheckRevoked(ctx context.Context, sessionCookie string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Provider — AuthProvider на сессионных cookie Firebase.
type Provider struct {
	Client     Client
	SessionTTL time.Duration
	// Rejected отличает отказ в сессии от сбоя связи; nil — проверки Firebase.
	Rejected func(error) bool
	// RevokeOnSignOut отзывает refresh-токены на всех устройствах при выходе.
	RevokeOnSignOut bool
}

// NewClient создаёт клиент Firebase Auth; пустой credentialsFile — ADC.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*fbauth.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return client, nil
}

// SignIn проверяет ID-токен клиентского входа и выпускает сессионную cookie.
func (p *Provider) SignIn(ctx context.Context, idToken string) (domain.Session, string, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return domain.Session{}, "", domain.ErrValidation
	}
	tok, err := p.Client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.Session{}, "", fmt.Errorf("verify id token: %w", err)
	}
	cookie, err := p.Client.SessionCookie(ctx, idToken, p.ttl())
	if err != nil {
		return domain.Session{}, "", fmt.Errorf("create session cookie: %w", err)
	}
	return sessionFromToken(tok), cookie, nil
}

func (p *Provider) Resolve(ctx context.Context, sessionToken string) (domain.Session, error) {
	if sessionToken == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	tok, err := p.Client.VerifySessionCookieAndCheckRevoked(ctx, sessionToken)
	if err != nil {
		if p.rejected(err) {
			return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
		}
		return domain.Session{}, fmt.Errorf("verify session cookie: %w", err)
	}
	s := sessionFromToken(tok)
	if !s.Authenticated() {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return s, nil
}

// SignOut завершает текущую сессию; cookie удаляет вызывающий.
// С RevokeOnSignOut также отзывает refresh-токены, то есть выход на всех устройствах.
func (p *Provider) SignOut(ctx context.Context, s domain.Session) error {
	if !s.Authenticated() {
		return errors.New("sign out: no session")
	}
	if !p.RevokeOnSignOut {
		return nil
	}
	if err := p.Client.RevokeRefreshTokens(ctx, s.UID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (p *Provider) rejected(err error) bool {
	if p.Rejected != nil {
		return p.Rejected(err)
	}
	return fbauth.IsSessionCookieInvalid(err) || fbauth.IsSessionCookieRevoked(err) || fbauth.IsUserDisabled(err)
}

func (p *Provider) ttl() time.Duration {
	// Firebase принимает сессионные cookie сроком от 5 минут до 14 дней.
	switch {
	case p.SessionTTL <= 0:
		return 5 * 24 * time.Hour
	case p.SessionTTL < 5*time.Minute:
		return 5 * time.Minute
	case p.SessionTTL > 14*24*time.Hour:
		return 14 * 24 * time.Hour
	}
	return p.SessionTTL
}

func sessionFromToken(tok *fbauth.Token) domain.Session {
	s := domain.Session{UID: strings.TrimSpace(tok.UID)}
	if v, ok := tok.Claims["email"].(string); ok {
		s.Email = strings.TrimSpace(v)
	}
	if v, ok := tok.Claims["name"].(string); ok {
		s.Name = strings.TrimSpace(v)
	}
	return s
}

var (
	_ domain.AuthProvider = (*Provider)(nil)
	_ Client              = (*fbauth.Client)(nil)
)
