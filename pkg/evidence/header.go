package evidence

import (
	"fmt"
	"strings"
)

// In HiddenCM mode a description starts with `<key=value>` lines:
//
//	<owner=def,pro>
//	<can_hide_in=1>
//	<dark=0>
//	The actual description.
//
// Only the owner line is required.
type Header struct {
	Visibility Visibility
	CanHideIn  bool
	Dark       DarkMode
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "<") || !strings.HasSuffix(line, ">") {
		return "", "", false
	}
	key, value, ok = strings.Cut(line[1:len(line)-1], "=")
	if !ok {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}

// ParseHeader splits a description into its header and body. A description
// without a recognisable owner line yields a hidden item with the whole text
// as its body.
func ParseHeader(description string) (Header, string) {
	header := Header{Visibility: Hidden}

	lines := strings.Split(description, "\n")
	key, value, ok := parseLine(lines[0])
	if !ok || key != "owner" {
		return header, description
	}
	header.Visibility = ParseVisibility(value)

	consumed := 1
	for _, line := range lines[1:] {
		key, value, ok := parseLine(line)
		if !ok {
			break
		}
		switch key {
		case "can_hide_in":
			header.CanHideIn = value == "1" || strings.EqualFold(value, "true")
		case "dark":
			if value == "1" || strings.EqualFold(value, "true") {
				header.Dark = DarkVisible
			}
		default:
			// unknown keys are kept in the body
			return header, strings.Join(lines[consumed:], "\n")
		}
		consumed++
	}

	return header, strings.Join(lines[consumed:], "\n")
}

func FormatHeader(item Item) string {
	dark := 0
	if item.Dark == DarkVisible {
		dark = 1
	}
	hide := 0
	if item.CanHideIn {
		hide = 1
	}
	return fmt.Sprintf("<owner=%s>\n<can_hide_in=%d>\n<dark=%d>\n%s", item.Visibility, hide, dark, item.Description)
}
