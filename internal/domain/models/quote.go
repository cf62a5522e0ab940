package models

import (
	"fmt"
	"time"
)

// QuoteKind distinguishes the order shapes sharing the quotes store.
type QuoteKind string

const (
	QuoteKindBulk          QuoteKind = "bulk"
	QuoteKindSampleCourier QuoteKind = "sample_courier"
	QuoteKindCart          QuoteKind = "cart"
)

// Counter names and id prefixes. Cart orders share the bulk counter and prefix so bulk
// fulfilment sees a single numbering space.
const (
	CounterBulkQuote     = "bulkQuote"
	CounterSampleCourier = "sampleCourier"

	PrefixBulkQuote     = "BulkQuote"
	PrefixSampleCourier = "SampleCourier"
)

// Valid reports whether k is a known kind.
func (k QuoteKind) Valid() bool {
	switch k {
	case QuoteKindBulk, QuoteKindSampleCourier, QuoteKindCart:
		return true
	}
	return false
}

// Counter returns the counter name used to number quotes of this kind.
func (k QuoteKind) Counter() string {
	if k == QuoteKindSampleCourier {
		return CounterSampleCourier
	}
	return CounterBulkQuote
}

// Prefix returns the human-readable id prefix.
func (k QuoteKind) Prefix() string {
	if k == QuoteKindSampleCourier {
		return PrefixSampleCourier
	}
	return PrefixBulkQuote
}

// Bucket returns the storage bucket: sample couriers live apart, everything else under bulk.
func (k QuoteKind) Bucket() string {
	if k == QuoteKindSampleCourier {
		return "sample_courier"
	}
	return "bulk"
}

// QuoteStatus is the admin-managed lifecycle state.
type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "Pending"
	QuoteStatusQuoted    QuoteStatus = "Quoted"
	QuoteStatusCompleted QuoteStatus = "Completed"
	QuoteStatusCancelled QuoteStatus = "Cancelled"
)

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending: {QuoteStatusQuoted, QuoteStatusCancelled},
	QuoteStatusQuoted:  {QuoteStatusCompleted, QuoteStatusCancelled},
}

// ParseQuoteStatus matches one of the enumerated statuses.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	switch QuoteStatus(value) {
	case QuoteStatusPending, QuoteStatusQuoted, QuoteStatusCompleted, QuoteStatusCancelled:
		return QuoteStatus(value), nil
	}
	return "", fmt.Errorf("unknown quote status %q", value)
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s QuoteStatus) CanTransition(next QuoteStatus) bool {
	for _, allowed := range quoteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Customer holds the contact and delivery fields collected at submission.
type Customer struct {
	FullName    string `bson:"name" json:"fullName" validate:"required"`
	Email       string `bson:"email" json:"email" validate:"required,contact_email"`
	CountryCode string `bson:"country_code" json:"countryCode" validate:"required,startswith=+"`
	Phone       string `bson:"phone" json:"phone" validate:"required,numeric"`
	Street      string `bson:"street" json:"street" validate:"required"`
	City        string `bson:"city" json:"city" validate:"required"`
	State       string `bson:"state" json:"state" validate:"required"`
	Country     string `bson:"country" json:"country" validate:"required"`
	Pincode     string `bson:"pincode" json:"pincode" validate:"required"`
}

// FullPhone renders the phone number with its dialing code.
func (c Customer) FullPhone() string {
	return c.CountryCode + " " + c.Phone
}

// Shipping captures the delivery and presentation choices shared by every order kind.
type Shipping struct {
	Packing     string `bson:"packing" json:"packing"`
	CIF         bool   `bson:"cif" json:"cif"`
	Port        string `bson:"port,omitempty" json:"port,omitempty"`
	SourceState string `bson:"source_state,omitempty" json:"sourceState,omitempty"`
	CustomLogo  bool   `bson:"custom_logo" json:"customLogo"`
	Currency    string `bson:"currency" json:"currency"`
}

// SingleProductDetails is the payload of bulk and sample-courier quotes.
type SingleProductDetails struct {
	ProductID    string       `bson:"product_id" json:"productId"`
	ProductName  string       `bson:"product_name" json:"productName"`
	Grade        string       `bson:"grade" json:"grade"`
	QuantityUnit QuantityUnit `bson:"quantity" json:"quantity"`
	PricePerKg   *Money       `bson:"price_per_kg,omitempty" json:"pricePerKg,omitempty"`
}

// CartOrderLine is the frozen snapshot of one cart line inside an order.
type CartOrderLine struct {
	LineID       string       `bson:"line_id" json:"lineId"`
	ProductID    string       `bson:"product_id" json:"productId"`
	ProductName  string       `bson:"product_name,omitempty" json:"productName,omitempty"`
	Grade        string       `bson:"grade" json:"grade"`
	Packing      string       `bson:"packing,omitempty" json:"packing,omitempty"`
	QuantityUnit QuantityUnit `bson:"quantity_unit" json:"quantityUnit"`
	Quantity     int          `bson:"quantity" json:"quantity"`
	NumberOfBags int          `bson:"number_of_bags" json:"numberOfBags"`
	UnitPrice    Money        `bson:"unit_price" json:"unitPrice"`
	Subtotal     Money        `bson:"subtotal" json:"subtotal"`
	PriceSource  string       `bson:"price_source" json:"priceSource"`
	PriceFetched bool         `bson:"price_fetched" json:"priceFetched"`
}

// CartOrderDetails is the payload of cart orders.
type CartOrderDetails struct {
	CartOwner    string          `bson:"cart_owner,omitempty" json:"cartOwner,omitempty"`
	Lines        []CartOrderLine `bson:"lines" json:"lines"`
	Subtotal     Money           `bson:"subtotal" json:"subtotal"`
	ItemCount    int             `bson:"item_count" json:"itemCount"`
	TotalBags    int             `bson:"total_bags" json:"totalBags"`
	ProductCount int             `bson:"product_count" json:"productCount"`
}

// Quote is the persisted order/quote record. Exactly one of Single and Cart is set,
// matching Kind.
type Quote struct {
	QuoteID  string      `bson:"_id" json:"quoteId"`
	Sequence int64       `bson:"sequence" json:"sequence"`
	Kind     QuoteKind   `bson:"kind" json:"kind"`
	Bucket   string      `bson:"bucket" json:"bucket"`
	Status   QuoteStatus `bson:"status" json:"status"`
	Customer Customer    `bson:"customer" json:"customer"`
	Shipping Shipping    `bson:"shipping" json:"shipping"`

	Single *SingleProductDetails `bson:"single,omitempty" json:"single,omitempty"`
	Cart   *CartOrderDetails     `bson:"cart,omitempty" json:"cart,omitempty"`

	// Breakdown is in the quote currency; BaseBreakdown repeats it in the base currency.
	Breakdown      *PriceBreakdown `bson:"breakdown,omitempty" json:"breakdown,omitempty"`
	BaseBreakdown  *PriceBreakdown `bson:"base_breakdown,omitempty" json:"baseBreakdown,omitempty"`
	PriceOnRequest bool            `bson:"price_on_request" json:"priceOnRequest"`
	Currency       string          `bson:"currency" json:"currency"`
	ExchangeRate   Money           `bson:"exchange_rate" json:"exchangeRate"`
	AdditionalInfo string          `bson:"additional_info,omitempty" json:"additionalInfo,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Path is the logical store path used in audit entries.
func (q Quote) Path() string {
	return QuotePath(q.Kind, q.QuoteID)
}

// QuotePath builds quotes/{bucket}/{quoteId}.
func QuotePath(kind QuoteKind, quoteID string) string {
	return fmt.Sprintf("quotes/%s/%s", kind.Bucket(), quoteID)
}

// Entity names the audit entity type for the quote.
func (q Quote) Entity() string {
	if q.Kind == QuoteKindCart {
		return EntityCartQuote
	}
	return EntityOrder
}

// Validate enforces the tagged-union shape.
func (q Quote) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("unknown quote kind %q", q.Kind)
	}
	switch q.Kind {
	case QuoteKindCart:
		if q.Cart == nil || q.Single != nil {
			return fmt.Errorf("cart quote must carry cart details only")
		}
		if len(q.Cart.Lines) == 0 {
			return fmt.Errorf("cart quote must have at least one line")
		}
	default:
		if q.Single == nil || q.Cart != nil {
			return fmt.Errorf("%s quote must carry single product details only", q.Kind)
		}
	}
	if !q.PriceOnRequest && q.Breakdown == nil {
		return fmt.Errorf("quote without breakdown must be marked price on request")
	}
	return nil
}
