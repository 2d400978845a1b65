// Package events defines the raw storefront pixel event shapes consumed by
// the relay. Decoding is deliberately lenient: every section is optional and
// line lists are carried as raw JSON so a malformed list never fails the
// whole event.
package events

import (
	"encoding/json"
	"fmt"
)

// Lifecycle event names emitted by the storefront pixel.
const (
	PageViewed             = "page_viewed"
	ProductViewed          = "product_viewed"
	ProductAddedToCart     = "product_added_to_cart"
	ProductRemovedFromCart = "product_removed_from_cart"
	CartViewed             = "cart_viewed"
	CheckoutStarted        = "checkout_started"
	ShippingInfoSubmitted  = "checkout_shipping_info_submitted"
	PaymentInfoSubmitted   = "checkout_payment_info_submitted"
	CheckoutCompleted      = "checkout_completed"
	SearchSubmitted        = "search_submitted"
)

// PixelEvent is the envelope delivered by the storefront for every
// lifecycle event. Data is event-type-specific and decoded by the mapper.
type PixelEvent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Timestamp string          `json:"timestamp"`
	ClientID  string          `json:"clientId"`
	Context   Context         `json:"context"`
	Data      json.RawMessage `json:"data"`
}

// Context carries page metadata alongside the event data.
type Context struct {
	Document Document `json:"document"`
}

// Document describes the page the event originated from.
type Document struct {
	Title    string   `json:"title"`
	Location Location `json:"location"`
}

// Location is the page URL.
type Location struct {
	Href string `json:"href"`
}

// Money carries a decimal amount as a string plus its currency unit.
// The amount is parsed, never validated, downstream.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Collection is a product collection; only the title is consumed.
type Collection struct {
	Title string `json:"title"`
}

// Product is the product a variant belongs to.
type Product struct {
	ID          FlexString   `json:"id"`
	Title       string       `json:"title"`
	Vendor      string       `json:"vendor"`
	Type        string       `json:"type"`
	Collections []Collection `json:"collections"`
}

// ProductVariant is one sellable variant of a product.
type ProductVariant struct {
	ID      FlexString `json:"id"`
	Title   string     `json:"title"`
	SKU     string     `json:"sku"`
	Price   Money      `json:"price"`
	Product *Product   `json:"product"`
}

// LineCost is the cost breakdown of a cart line.
type LineCost struct {
	TotalAmount Money `json:"totalAmount"`
}

// DiscountApplication names an applied discount.
type DiscountApplication struct {
	Title string `json:"title"`
}

// DiscountAllocation attributes part of a discount application to one line.
type DiscountAllocation struct {
	Amount              *Money               `json:"amount"`
	DiscountApplication *DiscountApplication `json:"discountApplication"`
}

// CartLine is one quantity of a variant in the cart.
type CartLine struct {
	Merchandise         *ProductVariant      `json:"merchandise"`
	Quantity            int                  `json:"quantity"`
	Cost                *LineCost            `json:"cost"`
	DiscountAllocations []DiscountAllocation `json:"discountAllocations"`
}

// Cart is the full cart snapshot for cart_viewed. Lines stays raw so a
// missing or malformed list is absorbed by the formatter.
type Cart struct {
	Lines json.RawMessage `json:"lines"`
}

// CheckoutLineItem is one quantity of a variant within a checkout.
type CheckoutLineItem struct {
	Variant             *ProductVariant      `json:"variant"`
	Quantity            int                  `json:"quantity"`
	DiscountAllocations []DiscountAllocation `json:"discountAllocations"`
}

// DeliveryOption is one selectable shipping method.
type DeliveryOption struct {
	Title string `json:"title"`
}

// Delivery groups the shopper's delivery selections.
type Delivery struct {
	SelectedDeliveryOptions []DeliveryOption `json:"selectedDeliveryOptions"`
}

// ShippingLine is the chosen shipping rate.
type ShippingLine struct {
	Title string `json:"title"`
	Price *Money `json:"price"`
}

// Transaction is a payment attempt attached to the checkout.
type Transaction struct {
	Gateway string `json:"gateway"`
}

// Order references the order created by a completed checkout.
type Order struct {
	ID FlexString `json:"id"`
}

// Checkout is the checkout snapshot shared by all checkout_* events.
// LineItems stays raw for the same reason as Cart.Lines.
type Checkout struct {
	CurrencyCode         string                `json:"currencyCode"`
	TotalPrice           *Money                `json:"totalPrice"`
	LineItems            json.RawMessage       `json:"lineItems"`
	DiscountApplications []DiscountApplication `json:"discountApplications"`
	Delivery             *Delivery             `json:"delivery"`
	ShippingLine         *ShippingLine         `json:"shippingLine"`
	TotalTax             *Money                `json:"totalTax"`
	Transactions         []Transaction         `json:"transactions"`
	Order                *Order                `json:"order"`
}

// Per-event data sections.

// ProductViewedData is the data shape of product_viewed.
type ProductViewedData struct {
	ProductVariant *ProductVariant `json:"productVariant"`
}

// CartLineData is the data shape of product_added_to_cart and
// product_removed_from_cart.
type CartLineData struct {
	CartLine *CartLine `json:"cartLine"`
}

// CartViewedData is the data shape of cart_viewed.
type CartViewedData struct {
	Cart *Cart `json:"cart"`
}

// CheckoutData is the data shape of all checkout_* events.
type CheckoutData struct {
	Checkout *Checkout `json:"checkout"`
}

// SearchSubmittedData is the data shape of search_submitted.
type SearchSubmittedData struct {
	SearchResult struct {
		Query string `json:"query"`
	} `json:"searchResult"`
}

// FlexString decodes a JSON string or number into a string. Storefronts are
// inconsistent about identifier types; downstream we always want strings.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("FlexString: value %s is neither string nor number", b)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the identifier as a plain string.
func (f FlexString) String() string {
	return string(f)
}
