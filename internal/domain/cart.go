package domain

// CartLineItem — строка корзины; ключ (ProductID, Size, Color).
type CartLineItem struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// Cart — упорядоченный снимок строк корзины.
type Cart []CartLineItem

// Add увеличивает количество совпадающей строки либо добавляет новую с количеством 1.
func (c Cart) Add(productID, size, color string) Cart {
	for i := range c {
		if c[i].ProductID == productID && c[i].Size == size && c[i].Color == color {
			c[i].Quantity++
			return c
		}
	}
	return append(c, CartLineItem{ProductID: productID, Size: size, Color: color, Quantity: 1})
}

// Count — сумма количеств по всем строкам.
func (c Cart) Count() int {
	total := 0
	for _, it := range c {
		total += it.Quantity
	}
	return total
}
