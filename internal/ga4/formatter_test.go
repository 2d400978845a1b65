package ga4

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/dvloznov/storefront-analytics/internal/events"
)

func testFormatter() Formatter {
	return Formatter{FallbackBrand: "house-brand", IDPrefix: "shopify"}
}

func variantWithCollections(titles ...string) *events.ProductVariant {
	collections := make([]events.Collection, 0, len(titles))
	for _, t := range titles {
		collections = append(collections, events.Collection{Title: t})
	}
	return &events.ProductVariant{
		ID:    "v1",
		Title: "Large",
		Price: events.Money{Amount: "19.99", CurrencyCode: "USD"},
		Product: &events.Product{
			ID:          "p1",
			Title:       "Shirt",
			Vendor:      "Acme",
			Type:        "Apparel",
			Collections: collections,
		},
	}
}

func TestFormatItem_CategoryAlwaysPresent(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name    string
		variant *events.ProductVariant
	}{
		{"product with type", variantWithCollections()},
		{"product without type", &events.ProductVariant{Product: &events.Product{}}},
		{"variant without product", &events.ProductVariant{}},
		{"nil variant", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := f.FormatItem(tt.variant, 1, nil)
			// A missing price is NaN, which does not encode; it is not
			// what this test is about.
			item.Price = 0
			data, err := json.Marshal(item)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			v, ok := decoded["item_category"]
			if !ok {
				t.Fatal("item_category missing from payload")
			}
			if _, isString := v.(string); !isString {
				t.Errorf("item_category = %T, want string", v)
			}
		})
	}
}

func TestFormatItem_CategoryPositions(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name        string
		collections []string
		want        []*string
	}{
		{"no collections", nil, []*string{nil, nil, nil, nil}},
		{"one collection", []string{"Summer"}, []*string{ptr("Summer"), nil, nil, nil}},
		{"four collections", []string{"A", "B", "C", "D"}, []*string{ptr("A"), ptr("B"), ptr("C"), ptr("D")}},
		{"six collections caps at four", []string{"A", "B", "C", "D", "E", "F"}, []*string{ptr("A"), ptr("B"), ptr("C"), ptr("D")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := f.FormatItem(variantWithCollections(tt.collections...), 1, nil)
			got := []*string{item.ItemCategory2, item.ItemCategory3, item.ItemCategory4, item.ItemCategory5}
			for i := range got {
				switch {
				case tt.want[i] == nil && got[i] != nil:
					t.Errorf("item_category%d = %q, want omitted", i+2, *got[i])
				case tt.want[i] != nil && got[i] == nil:
					t.Errorf("item_category%d omitted, want %q", i+2, *tt.want[i])
				case tt.want[i] != nil && *got[i] != *tt.want[i]:
					t.Errorf("item_category%d = %q, want %q", i+2, *got[i], *tt.want[i])
				}
			}
		})
	}
}

func TestFormatItem_CategoriesNeverNull(t *testing.T) {
	f := testFormatter()

	item := f.FormatItem(variantWithCollections("Summer"), 1, nil)
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"item_category3", "item_category4", "item_category5"} {
		if v, present := decoded[key]; present {
			t.Errorf("%s present as %v, want omitted entirely", key, v)
		}
	}
}

func TestFormatItem_Identity(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name string
		sku  string
		want string
	}{
		{"sku present", "ABC-123", "SKU_ABC-123"},
		{"sku needs trimming", "  ABC-123  ", "SKU_ABC-123"},
		{"empty sku", "", "shopify_p1_v1"},
		{"whitespace-only sku", "   ", "shopify_p1_v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := variantWithCollections()
			v.SKU = tt.sku
			item := f.FormatItem(v, 1, nil)
			if item.ItemID != tt.want {
				t.Errorf("ItemID = %q, want %q", item.ItemID, tt.want)
			}
		})
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		title   string
		variant string
		want    string
	}{
		{"Shirt - Large", "Large", "Shirt"},
		{"Shirt", "Large", "Shirt"},
		{"Shirt - Large - XL", "Large", "Shirt - Large - XL"},
		{"Shirt - Large", "", "Shirt - Large"},
		{"", "Large", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title+"/"+tt.variant, func(t *testing.T) {
			if got := CleanName(tt.title, tt.variant); got != tt.want {
				t.Errorf("CleanName(%q, %q) = %q, want %q", tt.title, tt.variant, got, tt.want)
			}
		})
	}
}

func TestFormatItem_BrandFallback(t *testing.T) {
	f := testFormatter()

	v := variantWithCollections()
	item := f.FormatItem(v, 1, nil)
	if item.ItemBrand != "Acme" {
		t.Errorf("ItemBrand = %q, want vendor %q", item.ItemBrand, "Acme")
	}

	v.Product.Vendor = ""
	item = f.FormatItem(v, 1, nil)
	if item.ItemBrand != "house-brand" {
		t.Errorf("ItemBrand = %q, want fallback %q", item.ItemBrand, "house-brand")
	}
}

func TestFormatItem_DiscountEnrichment(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name         string
		allocations  []events.DiscountAllocation
		wantDiscount *float64
		wantCoupon   string
	}{
		{
			name: "amount and title",
			allocations: []events.DiscountAllocation{{
				Amount:              &events.Money{Amount: "3.50"},
				DiscountApplication: &events.DiscountApplication{Title: "SUMMER10"},
			}},
			wantDiscount: ptrF(3.50),
			wantCoupon:   "SUMMER10",
		},
		{
			name: "amount only",
			allocations: []events.DiscountAllocation{{
				Amount: &events.Money{Amount: "1.00"},
			}},
			wantDiscount: ptrF(1.00),
		},
		{
			name: "title only, malformed amount",
			allocations: []events.DiscountAllocation{{
				Amount:              &events.Money{Amount: "free"},
				DiscountApplication: &events.DiscountApplication{Title: "FREEBIE"},
			}},
			wantCoupon: "FREEBIE",
		},
		{
			name: "second allocation ignored",
			allocations: []events.DiscountAllocation{
				{},
				{
					Amount:              &events.Money{Amount: "9.99"},
					DiscountApplication: &events.DiscountApplication{Title: "HIDDEN"},
				},
			},
		},
		{name: "no allocations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := f.FormatItem(variantWithCollections(), 1, tt.allocations)
			switch {
			case tt.wantDiscount == nil && item.Discount != nil:
				t.Errorf("Discount = %v, want omitted", *item.Discount)
			case tt.wantDiscount != nil && item.Discount == nil:
				t.Errorf("Discount omitted, want %v", *tt.wantDiscount)
			case tt.wantDiscount != nil && *item.Discount != *tt.wantDiscount:
				t.Errorf("Discount = %v, want %v", *item.Discount, *tt.wantDiscount)
			}
			if item.Coupon != tt.wantCoupon {
				t.Errorf("Coupon = %q, want %q", item.Coupon, tt.wantCoupon)
			}
		})
	}
}

func TestFormatItem_NameCleaningAndVariant(t *testing.T) {
	f := testFormatter()

	v := variantWithCollections()
	v.Product.Title = "Shirt - Large"
	item := f.FormatItem(v, 1, nil)
	if item.ItemName != "Shirt" {
		t.Errorf("ItemName = %q, want %q", item.ItemName, "Shirt")
	}
	if item.ItemVariant != "Large" {
		t.Errorf("ItemVariant = %q, want %q", item.ItemVariant, "Large")
	}
}

func TestFormatItem_QuantityDefault(t *testing.T) {
	f := testFormatter()

	item := f.FormatItem(variantWithCollections(), 0, nil)
	if item.Quantity != 1 {
		t.Errorf("Quantity = %d, want default 1", item.Quantity)
	}
	item = f.FormatItem(variantWithCollections(), 3, nil)
	if item.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", item.Quantity)
	}
}

func TestCartItems_MalformedList(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"absent", nil},
		{"null", json.RawMessage(`null`)},
		{"not an array", json.RawMessage(`"not-an-array"`)},
		{"object", json.RawMessage(`{"lines": []}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := f.CartItems(tt.raw)
			if items == nil {
				t.Fatal("CartItems returned nil, want empty slice")
			}
			if len(items) != 0 {
				t.Errorf("len = %d, want 0", len(items))
			}

			checkout := f.CheckoutItems(tt.raw)
			if checkout == nil || len(checkout) != 0 {
				t.Errorf("CheckoutItems = %v, want empty slice", checkout)
			}
		})
	}
}

func TestCartItems_OrderAndQuantity(t *testing.T) {
	f := testFormatter()

	raw := json.RawMessage(`[
		{"quantity": 2, "merchandise": {"id": "v1", "title": "Large", "price": {"amount": "10.00"}, "product": {"id": "p1", "title": "Shirt"}}},
		{"quantity": 1, "merchandise": {"id": "v2", "title": "Small", "price": {"amount": "5.50"}, "product": {"id": "p2", "title": "Hat"}},
		 "discountAllocations": [{"amount": {"amount": "0.50"}, "discountApplication": {"title": "HALFOFF"}}]}
	]`)

	items := f.CartItems(raw)
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ItemID != "shopify_p1_v1" || items[0].Quantity != 2 {
		t.Errorf("items[0] = %+v, want p1/v1 qty 2", items[0])
	}
	if items[1].ItemID != "shopify_p2_v2" || items[1].Quantity != 1 {
		t.Errorf("items[1] = %+v, want p2/v2 qty 1", items[1])
	}
	if items[1].Discount == nil || *items[1].Discount != 0.50 {
		t.Errorf("items[1].Discount = %v, want 0.50", items[1].Discount)
	}
	if items[1].Coupon != "HALFOFF" {
		t.Errorf("items[1].Coupon = %q, want HALFOFF", items[1].Coupon)
	}
	if items[0].Discount != nil || items[0].Coupon != "" {
		t.Errorf("items[0] unexpectedly enriched: %+v", items[0])
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantNaN bool
	}{
		{"19.99", 19.99, false},
		{" 5.50 ", 5.50, false},
		{"0", 0, false},
		{"-3.25", -3.25, false},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAmount(tt.in)
			if tt.wantNaN {
				if !math.IsNaN(got) {
					t.Errorf("ParseAmount(%q) = %v, want NaN", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatItem_MalformedPricePropagates(t *testing.T) {
	f := testFormatter()

	v := variantWithCollections()
	v.Price.Amount = "not-a-number"
	item := f.FormatItem(v, 1, nil)
	if !math.IsNaN(item.Price) {
		t.Errorf("Price = %v, want NaN", item.Price)
	}
}

func ptr(s string) *string    { return &s }
func ptrF(f float64) *float64 { return &f }
