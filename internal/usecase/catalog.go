package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// LoadCatalog — загрузить все товары из репозитория в кэш при старте.
type LoadCatalog struct {
	Repo  domain.ProductRepository
	Cache domain.ProductCache
}

func (uc LoadCatalog) Execute(ctx context.Context) error {
	return uc.Repo.LoadAll(ctx, func(id string, raw []byte) error {
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			// пропускаем битые записи, не прерывая полную загрузку
			return nil
		}
		p.ID = id
		uc.Cache.Set(id, p)
		return nil
	})
}

// ProcessIncomingProduct — сохранить входящее сообщение товара и обновить кэш.
type ProcessIncomingProduct struct {
	Repo  domain.ProductRepository
	Cache domain.ProductCache
}

func (uc ProcessIncomingProduct) Execute(ctx context.Context, raw []byte) error {
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: decode product: %v", domain.ErrValidation, err)
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return domain.ErrValidation
	}
	if err := uc.Repo.Upsert(ctx, p.ID, raw); err != nil {
		return err
	}
	uc.Cache.Set(p.ID, p)
	return nil
}
