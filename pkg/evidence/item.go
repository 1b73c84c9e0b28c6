package evidence

import (
	"fmt"
	"strings"

	"github.com/cfoust/courtroom/pkg/protocol"
)

const (
	VisibleAll    = "all"
	VisibleHidden = "hidden"
)

// Visibility is either everyone, nobody but staff, or a set of positions.
type Visibility struct {
	All       bool
	Hidden    bool
	Positions []string
}

var (
	All    = Visibility{All: true}
	Hidden = Visibility{Hidden: true}
)

// ParseVisibility reads "all", "hidden", or a comma separated position list.
func ParseVisibility(owner string) Visibility {
	owner = strings.TrimSpace(owner)
	switch strings.ToLower(owner) {
	case VisibleAll, "":
		return All
	case VisibleHidden:
		return Hidden
	}

	positions := make([]string, 0)
	for _, pos := range strings.Split(owner, ",") {
		pos = strings.TrimSpace(pos)
		if pos != "" {
			positions = append(positions, pos)
		}
	}
	if len(positions) == 0 {
		return Hidden
	}
	return Visibility{Positions: positions}
}

func (v Visibility) String() string {
	switch {
	case v.All:
		return VisibleAll
	case v.Hidden:
		return VisibleHidden
	default:
		return strings.Join(v.Positions, ",")
	}
}

func (v Visibility) Includes(pos string) bool {
	if v.All {
		return true
	}
	if v.Hidden {
		return false
	}
	for _, p := range v.Positions {
		if p == pos {
			return true
		}
	}
	return false
}

// DarkMode decides whether an item shows up in an area with the lights off.
type DarkMode uint8

const (
	DarkHidden DarkMode = iota
	DarkVisible
)

type Item struct {
	Name        string
	Description string
	Image       string
	Visibility  Visibility
	// clients may hide inside this item
	CanHideIn bool
	Dark      DarkMode
	// keyword -> command line, e.g. "present" -> "/bg courtroom"
	Triggers map[string]string
}

func NewItem(name, description, image string) Item {
	return Item{
		Name:        name,
		Description: description,
		Image:       image,
		Visibility:  All,
		Triggers:    map[string]string{},
	}
}

func (i Item) clone() Item {
	i.Visibility.Positions = append([]string(nil), i.Visibility.Positions...)
	triggers := make(map[string]string, len(i.Triggers))
	for k, v := range i.Triggers {
		triggers[k] = v
	}
	i.Triggers = triggers
	return i
}

func (i Item) VisibleTo(a Access) bool {
	if a.Dark && i.Dark == DarkHidden {
		return false
	}
	return i.Visibility.Includes(a.Pos)
}

// Wire encodes the item as one `&` joined evidence list field.
func (i Item) Wire() protocol.Raw {
	return protocol.Raw(fmt.Sprintf(
		"%s&%s&%s",
		protocol.Escape(i.Name),
		protocol.Escape(i.Description),
		protocol.Escape(i.Image),
	))
}
