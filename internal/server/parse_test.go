package server

import (
	"encoding/json"
	"testing"
)

func TestParseTab(t *testing.T) {
	tab, err := ParseTab(json.RawMessage(`{"id": 12, "url": "https://example.com", "title": "Example", "favIconUrl": "https://example.com/f.ico", "windowId": 1}`))
	if err != nil {
		t.Fatal(err)
	}
	if tab.ID != "12" || tab.URL != "https://example.com" || tab.Title != "Example" || tab.Favicon != "https://example.com/f.ico" {
		t.Errorf("got %+v", tab)
	}
}

func TestParseTabWithoutID(t *testing.T) {
	for _, raw := range []string{`{"url": "https://example.com"}`, `{"id": -1, "url": "https://example.com"}`} {
		tab, err := ParseTab(json.RawMessage(raw))
		if err != nil {
			t.Fatal(err)
		}
		if tab.ID != "" {
			t.Errorf("%s: ID = %q, want empty", raw, tab.ID)
		}
	}
}

func TestParseTabNull(t *testing.T) {
	for _, raw := range []string{``, `null`, ` null `} {
		tab, err := ParseTab(json.RawMessage(raw))
		if err != nil || tab != nil {
			t.Errorf("ParseTab(%q) = %+v, %v; want nil, nil", raw, tab, err)
		}
	}
}

func TestParseExtraction(t *testing.T) {
	ext, err := ParseExtraction(json.RawMessage(`{"url": "https://example.com/", "title": "Example"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ext.Description != "" || ext.Title != "Example" {
		t.Errorf("got %+v", ext)
	}

	ext, err = ParseExtraction(json.RawMessage(`null`))
	if err != nil || ext != nil {
		t.Errorf("null: got %+v, %v", ext, err)
	}

	if _, err := ParseExtraction(json.RawMessage(`[1,2]`)); err == nil {
		t.Error("expected error for malformed metadata")
	}
}
