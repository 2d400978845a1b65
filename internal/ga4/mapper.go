package ga4

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/storefront-analytics/internal/events"
)

// Settings is the configuration surface the mapper consumes.
type Settings struct {
	// DefaultCurrency is used for cart and product events, and as the
	// fallback when a checkout carries no currency code.
	DefaultCurrency string

	FallbackBrand string
	IDPrefix      string
}

// Rule is one pure mapping from a raw pixel event to a canonical event.
type Rule func(evt *events.PixelEvent) (Event, error)

// Mapper holds one mapping rule per lifecycle event type.
type Mapper struct {
	currency string
	items    Formatter
	log      zerolog.Logger
}

// NewMapper creates a mapper with the given settings.
func NewMapper(s Settings, log zerolog.Logger) *Mapper {
	return &Mapper{
		currency: s.DefaultCurrency,
		items:    Formatter{FallbackBrand: s.FallbackBrand, IDPrefix: s.IDPrefix},
		log:      log,
	}
}

// Rules returns the subscription table: lifecycle event name to mapping rule.
func (m *Mapper) Rules() map[string]Rule {
	return map[string]Rule{
		events.PageViewed:             m.pageViewed,
		events.ProductViewed:          m.productViewed,
		events.ProductAddedToCart:     m.cartLineEvent("add_to_cart"),
		events.ProductRemovedFromCart: m.cartLineEvent("remove_from_cart"),
		events.CartViewed:             m.cartViewed,
		events.CheckoutStarted:        m.checkoutEvent("begin_checkout", nil),
		events.ShippingInfoSubmitted:  m.checkoutEvent("add_shipping_info", shippingExtras),
		events.PaymentInfoSubmitted:   m.checkoutEvent("add_payment_info", paymentExtras),
		events.CheckoutCompleted:      m.checkoutEvent("purchase", purchaseExtras),
		events.SearchSubmitted:        m.searchSubmitted,
	}
}

// Map converts one pixel event into a canonical event. The bool result is
// false when the event name has no mapping rule.
func (m *Mapper) Map(evt *events.PixelEvent) (Event, bool, error) {
	rule, ok := m.Rules()[evt.Name]
	if !ok {
		return Event{}, false, nil
	}
	out, err := rule(evt)
	if err != nil {
		return Event{}, true, err
	}
	m.log.Debug().Str("lifecycle_event", evt.Name).Str("event", out.Name).Msg("Mapped lifecycle event")
	return out, true, nil
}

func (m *Mapper) pageViewed(evt *events.PixelEvent) (Event, error) {
	return Event{
		Name: "page_view",
		Params: map[string]any{
			"page_title":    evt.Context.Document.Title,
			"page_location": evt.Context.Document.Location.Href,
		},
	}, nil
}

func (m *Mapper) productViewed(evt *events.PixelEvent) (Event, error) {
	var data events.ProductViewedData
	if err := decodeData(evt, &data); err != nil {
		return Event{}, err
	}
	item := m.items.FormatItem(data.ProductVariant, 1, nil)
	return Event{
		Name: "view_item",
		Params: map[string]any{
			"currency": m.currency,
			"value":    item.Price,
			"items":    []Item{item},
		},
	}, nil
}

// cartLineEvent builds the rule shared by add_to_cart and remove_from_cart:
// a single item carrying the line quantity, valued at the line total.
func (m *Mapper) cartLineEvent(name string) Rule {
	return func(evt *events.PixelEvent) (Event, error) {
		var data events.CartLineData
		if err := decodeData(evt, &data); err != nil {
			return Event{}, err
		}
		line := data.CartLine
		if line == nil {
			line = &events.CartLine{}
		}
		item := m.items.FormatItem(line.Merchandise, line.Quantity, line.DiscountAllocations)
		var total string
		if line.Cost != nil {
			total = line.Cost.TotalAmount.Amount
		}
		return Event{
			Name: name,
			Params: map[string]any{
				"currency": m.currency,
				"value":    ParseAmount(total),
				"items":    []Item{item},
			},
		}, nil
	}
}

func (m *Mapper) cartViewed(evt *events.PixelEvent) (Event, error) {
	var data events.CartViewedData
	if err := decodeData(evt, &data); err != nil {
		return Event{}, err
	}
	var raw json.RawMessage
	if data.Cart != nil {
		raw = data.Cart.Lines
	}
	items := m.items.CartItems(raw)

	// Value is summed over the formatted items, not the raw lines.
	value := 0.0
	for _, it := range items {
		value += it.Price * float64(it.Quantity)
	}
	return Event{
		Name: "view_cart",
		Params: map[string]any{
			"currency": m.currency,
			"value":    value,
			"items":    items,
		},
	}, nil
}

// checkoutEvent builds the rule shared by all checkout-scoped events:
// checkout total as value, all line items, optional coupon, plus any
// event-specific extras.
func (m *Mapper) checkoutEvent(name string, extras func(c *events.Checkout, params map[string]any)) Rule {
	return func(evt *events.PixelEvent) (Event, error) {
		var data events.CheckoutData
		if err := decodeData(evt, &data); err != nil {
			return Event{}, err
		}
		c := data.Checkout
		if c == nil {
			c = &events.Checkout{}
		}

		currency := c.CurrencyCode
		if currency == "" {
			currency = m.currency
		}
		var total string
		if c.TotalPrice != nil {
			total = c.TotalPrice.Amount
		}
		params := map[string]any{
			"currency": currency,
			"value":    ParseAmount(total),
			"items":    m.items.CheckoutItems(c.LineItems),
		}
		if len(c.DiscountApplications) > 0 && c.DiscountApplications[0].Title != "" {
			params["coupon"] = c.DiscountApplications[0].Title
		}
		if extras != nil {
			extras(c, params)
		}
		return Event{Name: name, Params: params}, nil
	}
}

// shippingExtras attaches shipping_tier: the first selected delivery option
// title, else the shipping line title, else empty.
func shippingExtras(c *events.Checkout, params map[string]any) {
	tier := ""
	switch {
	case c.Delivery != nil && len(c.Delivery.SelectedDeliveryOptions) > 0:
		tier = c.Delivery.SelectedDeliveryOptions[0].Title
	case c.ShippingLine != nil:
		tier = c.ShippingLine.Title
	}
	params["shipping_tier"] = tier
}

// paymentExtras attaches payment_type from the first transaction, if any.
func paymentExtras(c *events.Checkout, params map[string]any) {
	if len(c.Transactions) > 0 {
		params["payment_type"] = c.Transactions[0].Gateway
	}
}

// purchaseExtras attaches transaction_id (always a string, even when the
// source order id is numeric) plus tax and shipping, which default to 0
// when their source fields are absent.
func purchaseExtras(c *events.Checkout, params map[string]any) {
	orderID := ""
	if c.Order != nil {
		orderID = c.Order.ID.String()
	}
	params["transaction_id"] = orderID

	tax := 0.0
	if c.TotalTax != nil {
		tax = ParseAmount(c.TotalTax.Amount)
	}
	params["tax"] = tax

	shipping := 0.0
	if c.ShippingLine != nil && c.ShippingLine.Price != nil {
		shipping = ParseAmount(c.ShippingLine.Price.Amount)
	}
	params["shipping"] = shipping
}

func (m *Mapper) searchSubmitted(evt *events.PixelEvent) (Event, error) {
	var data events.SearchSubmittedData
	if err := decodeData(evt, &data); err != nil {
		return Event{}, err
	}
	return Event{
		Name: "search",
		Params: map[string]any{
			"search_term": data.SearchResult.Query,
		},
	}, nil
}

func decodeData(evt *events.PixelEvent, v any) error {
	if len(evt.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(evt.Data, v); err != nil {
		return fmt.Errorf("decodeData: event %s: %w", evt.Name, err)
	}
	return nil
}
