package domain

// Product — товар каталога; владелец данных — внешнее хранилище.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Stock    int      `json:"stock"`
	ImageURL string   `json:"imageUrl"`
	Sizes    []string `json:"sizes"`
	Colors   []Color  `json:"colors"`
	Category string   `json:"category"`
}

type Color struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// InStock — есть ли хотя бы одна единица в наличии.
func (p Product) InStock() bool { return p.Stock > 0 }
