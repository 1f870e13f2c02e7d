// internal/fgfs/parse.go
package fgfs

import (
	"regexp"
	"strconv"
	"strings"
)

// listingLine matches one entry of an `ls` reply:
//
//	latitude-deg = '56.9' (double)
var listingLine = regexp.MustCompile(`^([^=]*)\s+=\s*'([^']*)'\s*\(([^\r]*)\)`)

// parseListing converts an `ls` reply into typed properties.
// The final chunk (the prompt) is never a property line.
// Lines that do not match, carry an empty value, or hold an unparsable
// double are skipped.
func parseListing(block string) map[string]any {
	out := make(map[string]any)

	lines := strings.Split(block, "\r\n")
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	for _, line := range lines {
		m := listingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		key := strings.TrimSpace(m[1])
		raw := m[2]
		if key == "" || raw == "" {
			continue
		}

		switch strings.TrimSpace(m[3]) {
		case "double":
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			out[key] = v
		case "bool":
			out[key] = raw == "true"
		default:
			out[key] = raw
		}
	}

	return out
}

// readUntil reads from r until the accumulated data ends with term.
// Whatever was read is returned alongside any error.
func readUntil(r interface{ ReadString(byte) (string, error) }, term string) (string, error) {
	var sb strings.Builder
	last := term[len(term)-1]

	for {
		chunk, err := r.ReadString(last)
		sb.WriteString(chunk)
		if err != nil {
			return sb.String(), err
		}
		if strings.HasSuffix(sb.String(), term) {
			return sb.String(), nil
		}
	}
}
