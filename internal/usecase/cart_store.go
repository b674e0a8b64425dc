package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// CartKey — ключ снимка корзины в хранилище посетителя.
const CartKey = "cart"

// CartStore — корзина посетителя поверх LocalStorage.
type CartStore struct {
	Storage domain.LocalStorage
	Badge   domain.CartBadge
	Logger  *slog.Logger
}

// AddItem добавляет единицу товара и сохраняет полный снимок корзины.
func (s CartStore) AddItem(ctx context.Context, productID, size, color string) error {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(size) == "" {
		return domain.ErrValidation
	}
	cart, err := s.load(ctx)
	if err != nil {
		return err
	}
	cart = cart.Add(productID, size, color)
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Storage.SetItem(ctx, CartKey, string(raw)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if s.Badge != nil {
		s.Badge.SetCount(cart.Count())
	}
	return nil
}

// Count не возвращает ошибок: нечитаемое или битое состояние считается пустой корзиной.
func (s CartStore) Count(ctx context.Context) int {
	return s.Items(ctx).Count()
}

func (s CartStore) Items(ctx context.Context) domain.Cart {
	cart, err := s.load(ctx)
	if err != nil {
		s.logger().Warn("read cart", "err", err)
		return nil
	}
	return cart
}

// Clear удаляет сохранённую корзину.
func (s CartStore) Clear(ctx context.Context) error {
	if err := s.Storage.RemoveItem(ctx, CartKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if s.Badge != nil {
		s.Badge.SetCount(0)
	}
	return nil
}

// load возвращает ошибку хранилища как есть; битый снимок — пустая корзина.
func (s CartStore) load(ctx context.Context) (domain.Cart, error) {
	raw, ok, err := s.Storage.GetItem(ctx, CartKey)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var cart domain.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		s.logger().Debug("malformed cart snapshot, treating as empty", "err", err)
		return nil, nil
	}
	return cart, nil
}

func (s CartStore) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
