package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/moonbaby-storefront/internal/domain"
)

const (
	// PlaceholderColor — цвет, с которым добавляется любой товар: выбор цвета пока не реализован.
	PlaceholderColor = "Blue"
	DefaultImageURL  = "images/products/default.jpg"

	AddedNotice     = "Item added to cart!"
	NoticeTTL       = 2000 * time.Millisecond
	LoginRequired   = "Please login to add items to cart"
	CategoryAll     = "all"
	LoadingText     = "Loading products..."
	NoProductsText  = "No products found"
	LoadErrorText   = "Error loading products. Please try again."
	AllProductsText = "All Products"
)

// Categories — кнопки фильтра на странице каталога.
var Categories = []string{CategoryAll, "boys", "girls"}

// ProductCard — проекция товара для отображения.
type ProductCard struct {
	ID           string
	Name         string
	Price        string
	ImageURL     string
	InStock      bool
	Availability string
	Sizes        []string
	Colors       []domain.Color
}

// ProductGrid — область вывода карточек; показывает ровно одно состояние за раз.
type ProductGrid interface {
	ShowLoading(text string)
	ShowEmpty(text string)
	ShowError(text string)
	ShowProducts(cards []ProductCard)
}

// ProductRenderer — загрузка каталога и действие «в корзину».
type ProductRenderer struct {
	Catalog  domain.ProductCatalog
	Notifier domain.Notifier
	Logger   *slog.Logger
}

// FetchAndRender не возвращает ошибок: сбой заканчивается заглушкой с ошибкой.
func (r ProductRenderer) FetchAndRender(ctx context.Context, grid ProductGrid, category string) {
	grid.ShowLoading(LoadingText)

	products, err := r.Catalog.List(ctx, NormalizeCategory(category))
	if err != nil {
		r.logger().Error("fetch products", "category", category, "err", err)
		grid.ShowError(LoadErrorText)
		return
	}
	if len(products) == 0 {
		grid.ShowEmpty(NoProductsText)
		return
	}
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, NewProductCard(p))
	}
	grid.ShowProducts(cards)
}

func NewProductCard(p domain.Product) ProductCard {
	c := ProductCard{
		ID:           p.ID,
		Name:         p.Name,
		Price:        fmt.Sprintf("$%.2f", p.Price),
		ImageURL:     p.ImageURL,
		InStock:      p.InStock(),
		Availability: "Out of Stock",
		Sizes:        p.Sizes,
		Colors:       p.Colors,
	}
	if c.ImageURL == "" {
		c.ImageURL = DefaultImageURL
	}
	if c.InStock {
		c.Availability = "In Stock"
	}
	return c
}

// NormalizeCategory: "" и "all" означают отсутствие фильтра.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, CategoryAll) {
		return ""
	}
	return category
}

func CategoryTitle(category string) string {
	switch NormalizeCategory(category) {
	case "":
		return AllProductsText
	case "boys":
		return "Boys Collection"
	default:
		return "Girls Collection"
	}
}

// AddOutcome — результат нажатия «в корзину».
type AddOutcome struct {
	Added bool
	// Alert и Redirect заполняются, когда действие заблокировано без сессии.
	Alert    string
	Redirect string
}

// AddToCart блокирует действие без сессии, иначе добавляет товар с выбранным размером.
func (r ProductRenderer) AddToCart(ctx context.Context, s domain.Session, cart CartStore, productID, size, returnTo string) (AddOutcome, error) {
	if !s.Authenticated() {
		return AddOutcome{Alert: LoginRequired, Redirect: LoginURL(returnTo)}, nil
	}
	if err := cart.AddItem(ctx, productID, size, PlaceholderColor); err != nil {
		return AddOutcome{}, err
	}
	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, AddedNotice, NoticeTTL); err != nil {
			r.logger().Warn("notify", "err", err)
		}
	}
	return AddOutcome{Added: true}, nil
}

func (r ProductRenderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
