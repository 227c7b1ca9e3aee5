package firefox

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/tabpreview/internal/types"
)

// Root returns the Firefox data directory holding profiles.ini, or ""
// when the OS layout is unknown.
func Root() string {
	switch runtime.GOOS {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin", "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		if runtime.GOOS == "windows" {
			return filepath.Join(dir, "Mozilla", "Firefox")
		}
		return filepath.Join(dir, "Firefox")
	}
	return ""
}

type iniSection struct {
	name   string
	values map[string]string
}

func parseINI(data []byte) ([]iniSection, error) {
	var sections []iniSection
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", line[0] == ';', line[0] == '#':
		case line[0] == '[' && line[len(line)-1] == ']':
			sections = append(sections, iniSection{name: line[1 : len(line)-1], values: map[string]string{}})
		case len(sections) > 0:
			if k, v, ok := strings.Cut(line, "="); ok {
				sections[len(sections)-1].values[k] = v
			}
		}
	}
	return sections, sc.Err()
}

// Profiles lists the profiles under root that have a session file, in
// profiles.ini order.
func Profiles(root string) ([]types.Profile, error) {
	if root == "" {
		return nil, fmt.Errorf("no Firefox data directory known for %s", runtime.GOOS)
	}
	data, err := os.ReadFile(filepath.Join(root, "profiles.ini"))
	if err != nil {
		return nil, fmt.Errorf("read profiles.ini: %w", err)
	}
	sections, err := parseINI(data)
	if err != nil {
		return nil, fmt.Errorf("parse profiles.ini: %w", err)
	}

	var profiles []types.Profile
	for _, s := range sections {
		if !strings.HasPrefix(s.name, "Profile") || s.values["Path"] == "" {
			continue
		}
		p := types.Profile{
			Name:       s.values["Name"],
			Path:       s.values["Path"],
			IsRelative: s.values["IsRelative"] == "1",
			IsDefault:  s.values["Default"] == "1",
		}
		if p.IsRelative {
			p.Path = filepath.Join(root, p.Path)
		}
		if sessionPath(p.Path) == "" {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// OpenProfile returns a SessionHost for the profile called name under
// root. An empty name picks the default profile, else the first listed.
func OpenProfile(root, name string, fetch bool) (*SessionHost, types.Profile, error) {
	profiles, err := Profiles(root)
	if err != nil {
		return nil, types.Profile{}, err
	}
	p, err := pickProfile(profiles, name)
	if err != nil {
		return nil, types.Profile{}, err
	}
	return NewSessionHost(p.Path, fetch), p, nil
}

func pickProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, fmt.Errorf("no Firefox profile with a session file")
	}
	fallback := profiles[0]
	for _, p := range profiles {
		switch {
		case name != "" && p.Name == name:
			return p, nil
		case name == "" && p.IsDefault:
			return p, nil
		}
	}
	if name != "" {
		return types.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return fallback, nil
}
