package parsers

import (
	"strings"
)

// ParseExclusionList reads a single-column sheet of client codes (NRI flags,
// intersegment codes). Keys are trimmed and deduplicated; blank rows and a
// header-looking first cell are dropped.
func ParseExclusionList(filename string, data []byte) (map[string]struct{}, error) {
	grid, err := DecodeGrid(filename, data)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	for i, row := range grid {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		// Tolerate an optional header row; real client codes never contain spaces.
		if i == 0 && strings.Contains(key, " ") {
			continue
		}
		keys[key] = struct{}{}
	}
	return keys, nil
}
