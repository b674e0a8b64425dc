package httpapi

import "github.com/example/moonbaby-storefront/internal/usecase"

// htmlGrid запоминает последнее состояние сетки товаров для шаблона.
type htmlGrid struct {
	State string
	Text  string
	Cards []usecase.ProductCard
}

func (g *htmlGrid) ShowLoading(text string) { g.set("loading", text) }
func (g *htmlGrid) ShowEmpty(text string)   { g.set("empty", text) }
func (g *htmlGrid) ShowError(text string)   { g.set("error", text) }

func (g *htmlGrid) ShowProducts(cards []usecase.ProductCard) {
	g.State, g.Text, g.Cards = "products", "", cards
}

func (g *htmlGrid) set(state, text string) {
	g.State, g.Text, g.Cards = state, text, nil
}

// badgeRecorder — CartBadge, значение которого уходит в ответ.
type badgeRecorder struct{ count int }

func (b *badgeRecorder) SetCount(n int) { b.count = n }
