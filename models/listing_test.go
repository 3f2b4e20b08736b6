package models

import "testing"

func TestCloneDeepCopiesNestedMetadata(t *testing.T) {
	orig := Listing{
		Name: "Tampines 4-room",
		Metadata: map[string]any{
			"@type": "RealEstateListing",
			"offers": map[string]any{
				"price": "520,000",
			},
			"images": []any{
				map[string]any{"url": "a.jpg"},
			},
		},
	}

	copied := orig.Clone()
	copied.Metadata["@type"] = "changed"
	copied.Metadata["offers"].(map[string]any)["price"] = "1"
	copied.Metadata["images"].([]any)[0].(map[string]any)["url"] = "b.jpg"

	if orig.Metadata["@type"] != "RealEstateListing" {
		t.Fatal("top-level metadata shared between clone and original")
	}
	if got := orig.Metadata["offers"].(map[string]any)["price"]; got != "520,000" {
		t.Fatalf("nested offers map shared between clone and original: %v", got)
	}
	if got := orig.Metadata["images"].([]any)[0].(map[string]any)["url"]; got != "a.jpg" {
		t.Fatalf("nested array element shared between clone and original: %v", got)
	}
}

func TestCloneNilMetadata(t *testing.T) {
	l := Listing{Name: "no metadata"}
	if got := l.Clone(); got.Metadata != nil {
		t.Fatalf("expected nil metadata on clone, got %v", got.Metadata)
	}
}
