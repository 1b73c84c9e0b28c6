// Package evidence holds an area's ordered evidence list. The order is the
// wire index and survives edits and swaps.
package evidence

import (
	"fmt"
	"strings"

	"github.com/cfoust/courtroom/pkg/failure"
)

type Mode string

const (
	ModeFFA      Mode = "FFA"
	ModeMods     Mode = "Mods"
	ModeCM       Mode = "CM"
	ModeHiddenCM Mode = "HiddenCM"
)

func ParseMode(s string) (Mode, bool) {
	for _, mode := range []Mode{ModeFFA, ModeMods, ModeCM, ModeHiddenCM} {
		if strings.EqualFold(string(mode), s) {
			return mode, true
		}
	}
	return "", false
}

const Limit = 35

var (
	ErrNoPermission = failure.Domain("You don't have permission to manage evidence in this area.")
	ErrNotFound     = failure.Domain("Evidence not found.")
	ErrFull         = failure.Domainf("You can't have more than %d evidence items at a time.", Limit)
)

// Access describes the viewer or editor of a list.
type Access struct {
	Pos   string
	Mod   bool
	Owner bool
	// the area's lights are off
	Dark bool
}

type List struct {
	Mode  Mode
	items []Item
}

func NewList(mode Mode) *List {
	if mode == "" {
		mode = ModeFFA
	}
	return &List{Mode: mode}
}

func (l *List) Len() int {
	return len(l.items)
}

// Items returns a copy of the authoritative list.
func (l *List) Items() []Item {
	items := make([]Item, len(l.items))
	for i, item := range l.items {
		items[i] = item.clone()
	}
	return items
}

// Get returns the item at authoritative 0-based index i.
func (l *List) Get(i int) (Item, bool) {
	if i < 0 || i >= len(l.items) {
		return Item{}, false
	}
	return l.items[i].clone(), true
}

// Login reports whether a may mutate the list under the current mode.
func (l *List) Login(a Access) bool {
	switch l.Mode {
	case ModeMods:
		return a.Mod
	case ModeCM, ModeHiddenCM:
		return a.Owner || a.Mod
	default:
		return true
	}
}

func (l *List) privileged(a Access) bool {
	return l.Mode != ModeFFA && l.Login(a)
}

func (l *List) Add(a Access, name, description, image string) (Item, error) {
	if !l.Login(a) {
		return Item{}, ErrNoPermission
	}
	if len(l.items) >= Limit {
		return Item{}, ErrFull
	}

	item := NewItem(name, description, image)
	if l.Mode == ModeHiddenCM {
		header, body := ParseHeader(description)
		item.Description = body
		item.Visibility = header.Visibility
		item.CanHideIn = header.CanHideIn
		item.Dark = header.Dark
	}

	l.items = append(l.items, item)
	return item.clone(), nil
}

// Delete removes the item at authoritative index i. Under HiddenCM the item
// is handed back with transfer set so the caller can move it into the
// requester's inventory.
func (l *List) Delete(a Access, i int) (removed Item, transfer bool, err error) {
	if !l.Login(a) {
		return Item{}, false, ErrNoPermission
	}
	if i < 0 || i >= len(l.items) {
		return Item{}, false, ErrNotFound
	}

	removed = l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return removed, l.Mode == ModeHiddenCM, nil
}

func (l *List) Edit(a Access, i int, name, description, image string) (Item, error) {
	if !l.Login(a) {
		return Item{}, ErrNoPermission
	}
	if i < 0 || i >= len(l.items) {
		return Item{}, ErrNotFound
	}

	item := &l.items[i]
	item.Name = name
	item.Image = image
	item.Description = description
	if l.Mode == ModeHiddenCM {
		header, body := ParseHeader(description)
		item.Description = body
		item.Visibility = header.Visibility
		item.CanHideIn = header.CanHideIn
		item.Dark = header.Dark
	}
	return item.clone(), nil
}

func (l *List) Swap(a Access, i, j int) error {
	if !l.Login(a) {
		return ErrNoPermission
	}
	if i < 0 || j < 0 || i >= len(l.items) || j >= len(l.items) {
		return ErrNotFound
	}
	l.items[i], l.items[j] = l.items[j], l.items[i]
	return nil
}

func (l *List) SetVisibility(a Access, i int, visibility Visibility) error {
	if !l.Login(a) {
		return ErrNoPermission
	}
	if i < 0 || i >= len(l.items) {
		return ErrNotFound
	}
	l.items[i].Visibility = visibility
	return nil
}

func (l *List) SetTrigger(a Access, i int, trigger, command string) error {
	if !l.Login(a) {
		return ErrNoPermission
	}
	if i < 0 || i >= len(l.items) {
		return ErrNotFound
	}
	trigger = strings.ToLower(trigger)
	if command == "" {
		delete(l.items[i].Triggers, trigger)
		return nil
	}
	if l.items[i].Triggers == nil {
		l.items[i].Triggers = map[string]string{}
	}
	l.items[i].Triggers[trigger] = command
	return nil
}

// Reveal makes the item at authoritative index i visible to everyone. It
// reports whether anything changed.
func (l *List) Reveal(i int) bool {
	if i < 0 || i >= len(l.items) || l.items[i].Visibility.All {
		return false
	}
	l.items[i].Visibility = All
	return true
}

// Clear drops every item, used when an area resets.
func (l *List) Clear() {
	l.items = nil
}

// View is one viewer's filtered, renumbered copy of the list.
type View struct {
	Items []Item
	// Remap[local] is the authoritative 1-based index of the viewer's
	// local 1-based item. Remap[0] is 0 so "no evidence" stays 0.
	Remap []int
}

// View builds the list as a specific viewer sees it. Every later single item
// operation from that viewer must go through View.Resolve.
func (l *List) View(a Access) View {
	view := View{
		Items: make([]Item, 0, len(l.items)),
		Remap: []int{0},
	}

	privileged := l.privileged(a)
	for i, item := range l.items {
		if !privileged && !item.VisibleTo(a) {
			continue
		}
		shown := item.clone()
		if privileged && l.Mode == ModeHiddenCM {
			shown.Description = FormatHeader(item)
		}
		view.Items = append(view.Items, shown)
		view.Remap = append(view.Remap, i+1)
	}

	return view
}

// Resolve maps a local 1-based index to an authoritative 0-based index.
func (v View) Resolve(local int) (int, bool) {
	if local <= 0 || local >= len(v.Remap) {
		return 0, false
	}
	return v.Remap[local] - 1, true
}

// Inventory holds evidence a client took out of an area.
type Inventory struct {
	items []Item
}

func (inv *Inventory) Add(item Item) error {
	if len(inv.items) >= Limit {
		return ErrFull
	}
	inv.items = append(inv.items, item.clone())
	return nil
}

func (inv *Inventory) Items() []Item {
	return append([]Item(nil), inv.items...)
}

func (inv *Inventory) Len() int {
	return len(inv.items)
}

func (inv *Inventory) Take(i int) (Item, error) {
	if i < 0 || i >= len(inv.items) {
		return Item{}, ErrNotFound
	}
	item := inv.items[i]
	inv.items = append(inv.items[:i], inv.items[i+1:]...)
	return item, nil
}

func (inv *Inventory) String() string {
	names := make([]string, len(inv.items))
	for i, item := range inv.items {
		names[i] = fmt.Sprintf("%d. %s", i+1, item.Name)
	}
	return strings.Join(names, "\n")
}
