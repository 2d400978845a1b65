package ga4

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/storefront-analytics/internal/events"
)

// Formatter converts product variants and line items into canonical Items.
type Formatter struct {
	// FallbackBrand is used as item_brand when the product has no vendor.
	FallbackBrand string

	// IDPrefix prefixes composite identities for variants without a SKU.
	// It is a fixed deployment constant, not derived from locale.
	IDPrefix string
}

// FormatItem converts a variant into exactly one canonical Item. quantity
// defaults to 1 when not positive. allocations is the optional line-item
// discount context; only its first entry is considered.
func (f Formatter) FormatItem(variant *events.ProductVariant, quantity int, allocations []events.DiscountAllocation) Item {
	if variant == nil {
		variant = &events.ProductVariant{}
	}
	product := variant.Product
	if product == nil {
		product = &events.Product{}
	}
	if quantity <= 0 {
		quantity = 1
	}

	item := Item{
		ItemID:       f.itemID(variant, product),
		ItemName:     CleanName(product.Title, variant.Title),
		ItemVariant:  variant.Title,
		ItemBrand:    f.brand(product),
		ItemCategory: product.Type,
		Price:        ParseAmount(variant.Price.Amount),
		Quantity:     quantity,
	}

	// Categories 2..5 are strictly positional: the N-th collection fills
	// category N+1 or the field stays omitted. No compaction.
	slots := []**string{&item.ItemCategory2, &item.ItemCategory3, &item.ItemCategory4, &item.ItemCategory5}
	for i := 0; i < len(slots) && i < len(product.Collections); i++ {
		title := product.Collections[i].Title
		*slots[i] = &title
	}

	if len(allocations) > 0 {
		first := allocations[0]
		if first.Amount != nil {
			if d, err := strconv.ParseFloat(strings.TrimSpace(first.Amount.Amount), 64); err == nil {
				item.Discount = &d
			}
		}
		if first.DiscountApplication != nil && first.DiscountApplication.Title != "" {
			item.Coupon = first.DiscountApplication.Title
		}
	}

	return item
}

// CartItems decodes a raw cart line list and formats each line in order,
// passing the line as discount context. A missing or malformed list yields
// an empty slice, never an error.
func (f Formatter) CartItems(raw json.RawMessage) []Item {
	var lines []events.CartLine
	if !decodeList(raw, &lines) {
		return []Item{}
	}
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, f.FormatItem(line.Merchandise, line.Quantity, line.DiscountAllocations))
	}
	return items
}

// CheckoutItems is CartItems for checkout line items.
func (f Formatter) CheckoutItems(raw json.RawMessage) []Item {
	var lines []events.CheckoutLineItem
	if !decodeList(raw, &lines) {
		return []Item{}
	}
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, f.FormatItem(line.Variant, line.Quantity, line.DiscountAllocations))
	}
	return items
}

func decodeList(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (f Formatter) itemID(variant *events.ProductVariant, product *events.Product) string {
	if sku := strings.TrimSpace(variant.SKU); sku != "" {
		return "SKU_" + sku
	}
	return fmt.Sprintf("%s_%s_%s", f.IDPrefix, product.ID, variant.ID)
}

func (f Formatter) brand(product *events.Product) string {
	if product.Vendor != "" {
		return product.Vendor
	}
	return f.FallbackBrand
}

// CleanName strips the variant-title suffix the storefront appends to some
// product titles. Only a single exact trailing " - <variantTitle>" match is
// removed; anything else is returned unchanged.
func CleanName(title, variantTitle string) string {
	if variantTitle == "" {
		return title
	}
	return strings.TrimSuffix(title, " - "+variantTitle)
}

// ParseAmount parses a decimal amount string into a float64. A missing or
// malformed amount yields NaN, which propagates into the payload rather
// than being silently corrected.
func ParseAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
