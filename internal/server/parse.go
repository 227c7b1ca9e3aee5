package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lotas/tabpreview/internal/types"
)

type wireTab struct {
	ID         *int   `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
}

type wireMetadata struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// ParseTab converts a raw JSON tab into a Tab. A missing or null tab
// yields nil. Tab ids below zero (TAB_ID_NONE) leave ID empty.
func ParseTab(raw json.RawMessage) (*types.Tab, error) {
	if isNull(raw) {
		return nil, nil
	}
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return nil, fmt.Errorf("parse tab: %w", err)
	}
	tab := &types.Tab{
		URL:     wt.URL,
		Title:   wt.Title,
		Favicon: wt.FavIconURL,
	}
	if wt.ID != nil && *wt.ID >= 0 {
		tab.ID = strconv.Itoa(*wt.ID)
	}
	return tab, nil
}

// ParseExtraction converts the extraction routine's JSON result. A missing
// or null result yields nil; a missing description becomes "".
func ParseExtraction(raw json.RawMessage) (*types.Extraction, error) {
	if isNull(raw) {
		return nil, nil
	}
	var wm wireMetadata
	if err := json.Unmarshal(raw, &wm); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	ext := &types.Extraction{URL: wm.URL, Title: wm.Title}
	if wm.Description != nil {
		ext.Description = *wm.Description
	}
	return ext, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
