package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// ProductsCollection — коллекция каталога.
const ProductsCollection = "products"

type productDoc struct {
	Name     string     `firestore:"name"`
	Price    float64    `firestore:"price"`
	Stock    int        `firestore:"stock"`
	ImageURL string     `firestore:"imageUrl"`
	Sizes    []string   `firestore:"sizes"`
	Colors   []colorDoc `firestore:"colors"`
	Category string     `firestore:"category"`
}

type colorDoc struct {
	Name string `firestore:"name"`
	Code string `firestore:"code"`
}

func (d productDoc) toDomain(id string) domain.Product {
	p := domain.Product{
		ID:       id,
		Name:     d.Name,
		Price:    d.Price,
		Stock:    d.Stock,
		ImageURL: d.ImageURL,
		Sizes:    d.Sizes,
		Category: d.Category,
	}
	for _, c := range d.Colors {
		p.Colors = append(p.Colors, domain.Color{Name: c.Name, Code: c.Code})
	}
	return p
}

// ProductCatalogFS — каталог поверх коллекции products; порядок определяет Firestore.
type ProductCatalogFS struct {
	Client *firestore.Client
}

func NewProductCatalogFS(client *firestore.Client) *ProductCatalogFS {
	return &ProductCatalogFS{Client: client}
}

func (r *ProductCatalogFS) List(ctx context.Context, category string) ([]domain.Product, error) {
	if r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	q := r.Client.Collection(ProductsCollection).Query
	if category != "" {
		q = q.Where("category", "==", category)
	}
	it := q.Documents(ctx)
	defer it.Stop()

	var out []domain.Product
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		var d productDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toDomain(snap.Ref.ID))
	}
	return out, nil
}

// Upsert записывает документ товара; используется при заполнении каталога.
func (r *ProductCatalogFS) Upsert(ctx context.Context, p domain.Product) error {
	d := productDoc{
		Name:     p.Name,
		Price:    p.Price,
		Stock:    p.Stock,
		ImageURL: p.ImageURL,
		Sizes:    p.Sizes,
		Category: p.Category,
	}
	for _, c := range p.Colors {
		d.Colors = append(d.Colors, colorDoc{Name: c.Name, Code: c.Code})
	}
	_, err := r.Client.Collection(ProductsCollection).Doc(p.ID).Set(ctx, d)
	return err
}

var _ domain.ProductCatalog = (*ProductCatalogFS)(nil)
