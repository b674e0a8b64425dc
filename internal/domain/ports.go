package domain

import (
	"context"
	"time"
)

// LocalStorage — порт постоянного хранилища посетителя (аналог localStorage).
// Отсутствие ключа не является ошибкой: ok == false.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// ProductCatalog — порт чтения каталога; пустая категория означает без фильтра.
type ProductCatalog interface {
	List(ctx context.Context, category string) ([]Product, error)
}

// ProductRepository — порт персистентности товаров для загрузки из ленты.
type ProductRepository interface {
	Upsert(ctx context.Context, id string, raw []byte) error
	LoadAll(ctx context.Context, fn func(id string, raw []byte) error) error
}

// ProductCache — порт быстрого доступа к каталогу (кэш).
type ProductCache interface {
	Get(id string) (Product, bool)
	Set(id string, p Product)
}

// VisitorCounter атомарно увеличивает счётчик посещений; отсутствующий документ считается нулём.
type VisitorCounter interface {
	Bump(ctx context.Context) (int64, error)
}

// AuthProvider — порт внешнего провайдера идентификации.
type AuthProvider interface {
	// SignIn обменивает учётные данные провайдера на сессию и токен сессии.
	SignIn(ctx context.Context, credential string) (Session, string, error)
	Resolve(ctx context.Context, sessionToken string) (Session, error)
	SignOut(ctx context.Context, s Session) error
}

// SessionSource доставляет текущее состояние сессии при подписке и далее каждое изменение по порядку.
type SessionSource interface {
	Subscribe(fn func(Session)) (cancel func())
}

// Navigator выполняет полную замену текущей страницы.
type Navigator interface {
	Redirect(url string)
}

// Notifier показывает временное уведомление, которое исчезает через ttl.
type Notifier interface {
	Notify(ctx context.Context, text string, ttl time.Duration) error
}

// FlashMessages — уведомления посетителя; Take отдаёт текущее один раз.
type FlashMessages interface {
	Notifier
	Take(ctx context.Context) (text string, ok bool, err error)
}

// VisitorStorage выдаёт хранилища, изолированные по идентификатору посетителя.
type VisitorStorage interface {
	Storage(visitorID string) LocalStorage
	Flash(visitorID string) FlashMessages
}

// CartBadge — индикатор количества товаров в корзине.
type CartBadge interface {
	SetCount(n int)
}

// MessageSubscriber — порт подписчика на входящие сообщения каталога.
type MessageSubscriber interface {
	// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}

// Общие доменные ошибки
var (
	ErrNotFound        = notFoundError("not found")
	ErrValidation      = validationError("invalid data")
	ErrUnauthenticated = authError("not authenticated")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type authError string

func (e authError) Error() string { return string(e) }
