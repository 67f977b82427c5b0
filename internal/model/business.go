// Package model defines the business snapshot records and the derived area profiles.
package model

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Attributes maps snapshot attribute keys to their normalized string values.
// Booleans become "True"/"False", numbers keep their literal text and nested
// objects keep their raw JSON text. Null values are dropped.
type Attributes map[string]string

// UnmarshalJSON normalizes heterogeneous attribute values into strings.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Attributes, len(raw))
	for k, v := range raw {
		s := strings.TrimSpace(string(v))
		switch {
		case s == "" || s == "null":
			continue
		case s == "true":
			out[k] = "True"
		case s == "false":
			out[k] = "False"
		case strings.HasPrefix(s, `"`):
			var str string
			if err := json.Unmarshal(v, &str); err != nil {
				continue
			}
			out[k] = str
		default:
			out[k] = s
		}
	}
	*a = out
	return nil
}

// PriceTier parses RestaurantsPriceRange2. Unparseable values report false.
func (a Attributes) PriceTier() (float64, bool) {
	v, ok := a["RestaurantsPriceRange2"]
	if !ok {
		return 0, false
	}
	p, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(v), `'"`), 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// Business is one record of the ETL snapshot. The engine never mutates it.
type Business struct {
	ID          string     `json:"business_id"`
	Name        string     `json:"name"`
	PostalCode  string     `json:"postal_code"`
	City        string     `json:"city"`
	State       string     `json:"state,omitempty"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Categories  string     `json:"categories"`
	Stars       *float64   `json:"stars"`
	ReviewCount int        `json:"review_count"`
	IsOpen      int        `json:"is_open"`
	Attributes  Attributes `json:"attributes"`
}

// Open reports whether the business is currently flagged open.
func (b Business) Open() bool { return b.IsOpen == 1 }

// HasCoordinates reports whether both coordinates are present and non-zero.
func (b Business) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil && *b.Latitude != 0 && *b.Longitude != 0
}

// Rating returns the star rating when present and non-zero.
func (b Business) Rating() (float64, bool) {
	if b.Stars == nil || *b.Stars == 0 {
		return 0, false
	}
	return *b.Stars, true
}

// AreaCode returns the normalized postal code and whether it is a valid
// five-digit area code.
func (b Business) AreaCode() (string, bool) {
	z := strings.TrimSpace(b.PostalCode)
	if !ValidAreaCode(z) {
		return "", false
	}
	return z, true
}

// ValidAreaCode reports whether s is exactly five ASCII digits.
func ValidAreaCode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
