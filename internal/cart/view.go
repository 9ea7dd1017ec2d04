package cart

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted price.
const CurrencySymbol = "R$"

// badgeCap is the largest count the cart badge spells out.
const badgeCap = 9

// FormatPrice renders an amount with two fraction digits, e.g. "R$ 12.50".
func FormatPrice(amount decimal.Decimal) string {
	return CurrencySymbol + " " + amount.StringFixed(2)
}

// ButtonView is the floating cart button.
type ButtonView struct {
	Count int    `json:"count"`
	Badge string `json:"badge"`
}

// Button returns the floating button state, or nil when the cart is empty
// and nothing should be drawn.
func Button(s *Store) *ButtonView {
	n := s.TotalItems()
	if n == 0 {
		return nil
	}
	badge := strconv.Itoa(n)
	if n > badgeCap {
		badge = strconv.Itoa(badgeCap) + "+"
	}
	return &ButtonView{Count: n, Badge: badge}
}

// LineView is one row in the drawer.
type LineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// DrawerView is the slide-in cart panel.
type DrawerView struct {
	CartID     string     `json:"cart_id"`
	Open       bool       `json:"open"`
	Empty      bool       `json:"empty"`
	Lines      []LineView `json:"lines"`
	TotalItems int        `json:"total_items"`
	Total      string     `json:"total"`
}

// Drawer builds the drawer from one consistent snapshot of the store.
func Drawer(s *Store) DrawerView {
	items, open := s.drawerState()
	lines := make([]LineView, 0, len(items))
	count := 0
	total := decimal.Zero
	for _, it := range items {
		lt := it.LineTotal()
		lines = append(lines, LineView{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			ImageURL:  it.Product.ImageURL,
			UnitPrice: FormatPrice(it.Product.Price),
			Quantity:  it.Quantity,
			LineTotal: FormatPrice(lt),
		})
		count += it.Quantity
		total = total.Add(lt)
	}
	return DrawerView{
		CartID:     s.ID(),
		Open:       open,
		Empty:      len(items) == 0,
		Lines:      lines,
		TotalItems: count,
		Total:      FormatPrice(total),
	}
}

// ParseQuantity reads the drawer's quantity field. The leading integer is
// used; anything unparsable or zero becomes 1. Negative values pass through
// so the store removes the line. Large values are capped at MaxQuantity.
func ParseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n, err := strconv.Atoi(raw[:end])
	if errors.Is(err, strconv.ErrRange) {
		if raw[0] == '-' {
			return -1
		}
		return MaxQuantity
	}
	if err != nil || n == 0 {
		return 1
	}
	return min(n, MaxQuantity)
}
