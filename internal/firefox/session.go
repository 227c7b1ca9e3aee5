package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lotas/tabpreview/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// sessionFiles are tried in order: the live session, then the last closed one.
var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// maxSessionSize caps the uncompressed size a mozlz4 header may claim.
const maxSessionSize = 64 << 20

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	if string(data[:len(mozLz4Magic)]) != string(mozLz4Magic) {
		return nil, fmt.Errorf("mozlz4: invalid header magic")
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])
	if uncompressedSize > maxSessionSize {
		return nil, fmt.Errorf("mozlz4: declared size %d exceeds %d bytes", uncompressedSize, maxSessionSize)
	}

	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}

	return dst[:n], nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries []rawEntry `json:"entries"`
	Index   int        `json:"index"`
	Image   string     `json:"image"`
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	Selected int      `json:"selected"` // 1-based
}

type rawSession struct {
	Windows        []rawWindow `json:"windows"`
	SelectedWindow int         `json:"selectedWindow"` // 1-based
}

// ActiveTab returns the selected tab of the selected window in raw session
// JSON, or nil if the session has none. The tab ID is "<window>:<tab>",
// both 0-based.
func ActiveTab(data []byte) (*types.Tab, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	winIdx := raw.SelectedWindow - 1
	if winIdx < 0 || winIdx >= len(raw.Windows) {
		if len(raw.Windows) == 0 {
			return nil, nil
		}
		winIdx = 0
	}
	window := raw.Windows[winIdx]

	tabIdx := window.Selected - 1
	if tabIdx < 0 || tabIdx >= len(window.Tabs) {
		return nil, nil
	}
	return tabAt(raw, winIdx, tabIdx), nil
}

// TabByID returns the tab with the given "<window>:<tab>" ID, or nil.
func TabByID(data []byte, id string) (*types.Tab, error) {
	w, t, ok := strings.Cut(id, ":")
	if !ok {
		return nil, fmt.Errorf("invalid session tab id %q", id)
	}
	winIdx, err1 := strconv.Atoi(w)
	tabIdx, err2 := strconv.Atoi(t)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("invalid session tab id %q", id)
	}

	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}
	if winIdx < 0 || winIdx >= len(raw.Windows) || tabIdx < 0 || tabIdx >= len(raw.Windows[winIdx].Tabs) {
		return nil, nil
	}
	return tabAt(raw, winIdx, tabIdx), nil
}

func tabAt(raw rawSession, winIdx, tabIdx int) *types.Tab {
	rt := raw.Windows[winIdx].Tabs[tabIdx]
	tab := &types.Tab{
		ID:      fmt.Sprintf("%d:%d", winIdx, tabIdx),
		Favicon: rt.Image,
	}
	if len(rt.Entries) == 0 {
		return tab
	}

	// index is 1-based; current page is entries[index-1].
	entryIdx := rt.Index - 1
	if entryIdx < 0 || entryIdx >= len(rt.Entries) {
		entryIdx = len(rt.Entries) - 1
	}
	tab.URL = rt.Entries[entryIdx].URL
	tab.Title = rt.Entries[entryIdx].Title
	return tab
}

// sessionPath returns the first session file present in profileDir, or "".
func sessionPath(profileDir string) string {
	for _, name := range sessionFiles {
		p := filepath.Join(profileDir, "sessionstore-backups", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ReadSessionFile reads and decompresses the session file of a profile.
func ReadSessionFile(profileDir string) ([]byte, error) {
	path := sessionPath(profileDir)
	if path == "" {
		return nil, fmt.Errorf("no session file found in %s", filepath.Join(profileDir, "sessionstore-backups"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return decompressed, nil
}
