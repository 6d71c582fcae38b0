package exchange

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Order field vocabularies, as the exchange spells them.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"

	TimeInForceGTC = "GTC"
	TimeInForceIOC = "IOC"
	TimeInForceFOK = "FOK"
)

// APIError is a failed exchange call: a transport error dressed with the
// HTTP status and response body when we got that far. It marks upstream
// failures so callers can tell them apart from deliberate refusals.
type APIError struct {
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("exchange: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("exchange: %v", e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Balance is one asset line of the account snapshot. Amounts stay in the
// exchange's string form to avoid precision drift.
type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// IsZero reports whether both the free and locked amounts parse to zero.
func (b Balance) IsZero() bool {
	free, _ := strconv.ParseFloat(b.Free, 64)
	locked, _ := strconv.ParseFloat(b.Locked, 64)
	return free == 0 && locked == 0
}

// AccountSnapshot is the typed slice of the account response we care
// about, with the raw body kept for forward compatibility.
type AccountSnapshot struct {
	Balances []Balance       `json:"balances"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// NonZeroBalances filters out dust-free empty balance lines.
func (a *AccountSnapshot) NonZeroBalances() []Balance {
	out := make([]Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		if !b.IsZero() {
			out = append(out, b)
		}
	}
	return out
}

// OpenOrder is one resting order as reported by the exchange.
type OpenOrder struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	TimeInForce   string `json:"timeInForce"`
	Type          string `json:"type"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
}

// OrderParams is everything CreateOrder needs. Zero Quantity/Price fields
// are omitted from the request, matching the exchange's optionality rules.
type OrderParams struct {
	Symbol      string
	Side        string
	Type        string
	Quantity    float64
	Price       float64
	TimeInForce string
}

// OrderResult is the exchange's answer to an order submission. Test orders
// come back as an empty object, so every field is optional; Raw always
// carries the full body.
type OrderResult struct {
	Symbol        string          `json:"symbol,omitempty"`
	OrderID       int64           `json:"orderId,omitempty"`
	ClientOrderID string          `json:"clientOrderId,omitempty"`
	TransactTime  int64           `json:"transactTime,omitempty"`
	Price         string          `json:"price,omitempty"`
	OrigQty       string          `json:"origQty,omitempty"`
	ExecutedQty   string          `json:"executedQty,omitempty"`
	Status        string          `json:"status,omitempty"`
	Side          string          `json:"side,omitempty"`
	Type          string          `json:"type,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}
