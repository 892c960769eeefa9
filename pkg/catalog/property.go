package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var errNullRecord = errors.New("property record is null")

// StatusAvailable marks a property that can be offered to guests.
const StatusAvailable = "disponibile"

// Property is one managed rental unit. ID mirrors the catalog key and is
// not serialized inside the record itself.
type Property struct {
	ID       string   `json:"-"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Price    float64  `json:"price"`
	Location string   `json:"location"`
	Phone    string   `json:"phone"`
	Services []string `json:"services"`
	Status   string   `json:"status"`
}

func (p Property) Available() bool {
	return p.Status == StatusAvailable
}

func (p Property) clone() Property {
	out := p
	if p.Services != nil {
		out.Services = append([]string(nil), p.Services...)
	}
	return out
}

// UnmarshalJSON accepts loosely typed records: numbers where strings are
// expected, a price stored as text, services stored as one comma-separated
// string. Anything unusable falls back to the zero value, and a missing
// status defaults to StatusAvailable.
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errNullRecord
	}

	*p = Property{
		Name:     asString(raw["name"]),
		Type:     asString(raw["type"]),
		Location: asString(raw["location"]),
		Phone:    asString(raw["phone"]),
		Status:   asString(raw["status"]),
		Services: asServices(raw["services"]),
	}
	if p.Status == "" {
		p.Status = StatusAvailable
	}

	switch v := raw["price"].(type) {
	case float64:
		if v >= 0 {
			p.Price = v
		}
	case string:
		if price, err := ParsePrice(v); err == nil {
			p.Price = price
		}
	}
	return nil
}

// ParsePrice reads a price typed by an operator, tolerating a euro sign and
// a comma as decimal separator ("€120", "99,50").
func ParsePrice(s string) (float64, error) {
	cleaned := strings.ReplaceAll(s, "€", "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, ",", "."))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return v, nil
}

// ParseServices splits a comma-separated list, trimming each entry and any
// surrounding double quotes on the whole list.
func ParseServices(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

// FormatPrice renders a price as euros with thousands separators and two
// decimals, e.g. €1,234.50.
func FormatPrice(v float64) string {
	return "€" + humanize.FormatFloat("#,###.##", v)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func asServices(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := asString(item); s != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(x) == "" {
			return []string{}
		}
		return ParseServices(x)
	default:
		return []string{}
	}
}
