package etl

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizedSale is the canonical form of one raw sales payload.
type NormalizedSale struct {
	ProductID uuid.UUID
	Date      time.Time
	UnitsSold int
	Price     float64
	Revenue   float64
}

// ValidationError marks a per-record, client-caused normalization failure.
// It is recorded on the staging row; it never aborts the batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a record validation failure as
// opposed to an infrastructure error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Accepted aliases per canonical field, in resolution order. The primary key
// wins even when its value is falsy; presence is what matters, not truthiness.
var (
	productIDAliases = []string{"product_id", "productID"}
	unitsAliases     = []string{"units_sold", "quantity"}
	priceAliases     = []string{"price", "unit_price"}
)

const dateLayout = "2006-01-02"

// Normalize validates and coerces one raw payload into a canonical sale.
// Defaults: missing date -> the current UTC date, missing units -> 0,
// missing price -> 0, missing revenue -> units*price.
func Normalize(payload map[string]any, now time.Time) (NormalizedSale, error) {
	var out NormalizedSale

	rawID, ok := resolve(payload, productIDAliases...)
	if !ok || rawID == nil {
		return out, validationErr("product_id", "is required")
	}
	idStr, ok := rawID.(string)
	if !ok {
		return out, validationErr("product_id", "must be a string UUID")
	}
	productID, err := uuid.Parse(strings.TrimSpace(idStr))
	if err != nil {
		return out, validationErr("product_id", fmt.Sprintf("invalid UUID %q", idStr))
	}
	out.ProductID = productID

	out.Date = truncateToDate(now.UTC())
	if rawDate, ok := resolve(payload, "date"); ok && !isFalsy(rawDate) {
		dateStr, ok := rawDate.(string)
		if !ok {
			return out, validationErr("date", "must be an ISO date string")
		}
		parsed, err := parseDate(dateStr)
		if err != nil {
			return out, validationErr("date", fmt.Sprintf("invalid date %q", dateStr))
		}
		out.Date = parsed
	}

	units := 0
	if rawUnits, ok := resolve(payload, unitsAliases...); ok {
		units, err = toInt(rawUnits)
		if err != nil {
			return out, validationErr("units_sold", err.Error())
		}
	}
	if units < 0 {
		return out, validationErr("units_sold", "cannot be negative")
	}
	out.UnitsSold = units

	price := 0.0
	if rawPrice, ok := resolve(payload, priceAliases...); ok {
		price, err = toFloat(rawPrice)
		if err != nil {
			return out, validationErr("price", err.Error())
		}
	}
	if price < 0 {
		return out, validationErr("price", "cannot be negative")
	}
	out.Price = price

	out.Revenue = float64(units) * price
	if rawRevenue, ok := resolve(payload, "revenue"); ok && !isFalsy(rawRevenue) {
		revenue, err := toFloat(rawRevenue)
		if err != nil {
			return out, validationErr("revenue", err.Error())
		}
		out.Revenue = revenue
	}

	return out, nil
}

// resolve returns the value of the first alias present in the payload.
// Presence checks, not truthiness, so explicit zero values survive.
func resolve(payload map[string]any, aliases ...string) (any, bool) {
	for _, key := range aliases {
		if v, ok := payload[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case bool:
		return !t
	default:
		return false
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return truncateToDate(t.UTC()), nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("must be an integer, got %v", t)
		}
		return int(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", t.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number, got %q", t.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number, got %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("must be a number, got %T", v)
	}
}
