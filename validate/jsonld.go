package validate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"housescout/extract"
)

// ParseJSONLD pulls the first useful JSON-LD block out of a listing page.
// Portal pages usually carry a Product, Offer, Residence or RealEstateListing
// object; when several blocks are present the first one with a price-ish
// field wins. Returns nil when the page carries nothing usable.
func ParseJSONLD(html string) map[string]any {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var fallback map[string]any
	var found map[string]any

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, obj := range decodeJSONLD(s.Text()) {
			if _, ok := metadataPrice(obj); ok {
				found = obj
				return false
			}
			if fallback == nil {
				fallback = obj
			}
		}
		return true
	})

	if found != nil {
		return found
	}
	return fallback
}

// decodeJSONLD handles the shapes portals actually emit: a single object, a
// top-level array, and the @graph envelope.
func decodeJSONLD(raw string) []map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		if graph, ok := single["@graph"].([]any); ok {
			return collectObjects(graph)
		}
		return []map[string]any{single}
	}

	var list []any
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return collectObjects(list)
	}
	return nil
}

func collectObjects(items []any) []map[string]any {
	var out []map[string]any
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// metadataPrice digs a sane-range price out of a JSON-LD object. Prices show
// up as "price" or under "offers", as a number or a formatted string.
func metadataPrice(meta map[string]any) (int, bool) {
	if price, ok := coercePrice(meta["price"]); ok {
		return price, true
	}

	switch offers := meta["offers"].(type) {
	case map[string]any:
		if price, ok := coercePrice(offers["price"]); ok {
			return price, true
		}
	case []any:
		for _, o := range offers {
			obj, ok := o.(map[string]any)
			if !ok {
				continue
			}
			if price, ok := coercePrice(obj["price"]); ok {
				return price, true
			}
		}
	}
	return 0, false
}

func coercePrice(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		price := int(val)
		if price >= extract.MinPrice && price <= extract.MaxPrice {
			return price, true
		}
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		cleaned = strings.TrimPrefix(cleaned, "S$")
		cleaned = strings.TrimPrefix(cleaned, "$")
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			price := int(f)
			if price >= extract.MinPrice && price <= extract.MaxPrice {
				return price, true
			}
		}
	}
	return 0, false
}
