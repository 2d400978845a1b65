// Package ga4 normalizes storefront lifecycle events into the canonical
// GA4-style analytics schema. Formatting and mapping are pure; nothing in
// this package touches the network.
package ga4

// Event is one canonical analytics event, ready for dispatch to the sink.
type Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Item is the canonical item representation. Optional fields use pointers
// with omitempty so an absent value is omitted from the serialized payload,
// never emitted as null.
type Item struct {
	ItemID        string   `json:"item_id"`
	ItemName      string   `json:"item_name"`
	ItemVariant   string   `json:"item_variant,omitempty"`
	ItemBrand     string   `json:"item_brand"`
	ItemCategory  string   `json:"item_category"`
	ItemCategory2 *string  `json:"item_category2,omitempty"`
	ItemCategory3 *string  `json:"item_category3,omitempty"`
	ItemCategory4 *string  `json:"item_category4,omitempty"`
	ItemCategory5 *string  `json:"item_category5,omitempty"`
	Price         float64  `json:"price"`
	Quantity      int      `json:"quantity"`
	Discount      *float64 `json:"discount,omitempty"`
	Coupon        string   `json:"coupon,omitempty"`
}
