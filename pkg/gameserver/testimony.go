package gameserver

import (
	"fmt"
	"strings"

	"github.com/cfoust/courtroom/pkg/failure"
)

const TestimonyLimit = 30

var (
	ErrNoTestimony   = failure.Domain("There is no testimony in this area.")
	ErrTestimonyFull = failure.Domainf("A testimony can't have more than %d statements.", TestimonyLimit)
)

// Testimony is an ordered, editable list of IC statements.
type Testimony struct {
	Title      string
	Recording  bool
	Statements []*ICMessage
	// index of the displayed statement, -1 for none
	Cursor int
}

func (t *Testimony) Start(title string) error {
	if t.Recording {
		return failure.Domain("A testimony is already being recorded.")
	}
	t.Title = title
	t.Recording = true
	t.Statements = nil
	t.Cursor = -1
	return nil
}

// Append records a statement. It reports whether the testimony is now full.
func (t *Testimony) Append(m *ICMessage) (full bool) {
	if len(t.Statements) >= TestimonyLimit {
		return true
	}
	t.Statements = append(t.Statements, m.clone())
	t.Cursor = len(t.Statements) - 1
	return len(t.Statements) >= TestimonyLimit
}

// Amend replaces the statement under the cursor.
func (t *Testimony) Amend(m *ICMessage) error {
	if t.Cursor < 0 || t.Cursor >= len(t.Statements) {
		return ErrNoTestimony
	}
	t.Statements[t.Cursor] = m.clone()
	return nil
}

// Insert adds a statement after the cursor and moves onto it.
func (t *Testimony) Insert(m *ICMessage) error {
	if len(t.Statements) == 0 {
		return ErrNoTestimony
	}
	if len(t.Statements) >= TestimonyLimit {
		return ErrTestimonyFull
	}
	at := t.Cursor + 1
	t.Statements = append(t.Statements, nil)
	copy(t.Statements[at+1:], t.Statements[at:])
	t.Statements[at] = m.clone()
	t.Cursor = at
	return nil
}

func (t *Testimony) Remove() error {
	if t.Cursor < 0 || t.Cursor >= len(t.Statements) {
		return ErrNoTestimony
	}
	t.Statements = append(t.Statements[:t.Cursor], t.Statements[t.Cursor+1:]...)
	if t.Cursor >= len(t.Statements) {
		t.Cursor = len(t.Statements) - 1
	}
	return nil
}

func (t *Testimony) Open() bool {
	return len(t.Statements) > 0
}

// Jump moves the cursor to a 0-based statement.
func (t *Testimony) Jump(i int) (*ICMessage, error) {
	if t.Recording {
		return nil, failure.Domain("You can't navigate a testimony while it is being recorded.")
	}
	if !t.Open() {
		return nil, ErrNoTestimony
	}
	if i < 0 || i >= len(t.Statements) {
		return nil, failure.Domainf("Statement must be between 1 and %d.", len(t.Statements))
	}
	t.Cursor = i
	return t.Statements[i], nil
}

// Next wraps around to the first statement.
func (t *Testimony) Next() (*ICMessage, error) {
	if !t.Open() {
		return nil, ErrNoTestimony
	}
	return t.Jump((t.Cursor + 1) % len(t.Statements))
}

// Prev wraps around to the last statement.
func (t *Testimony) Prev() (*ICMessage, error) {
	if !t.Open() {
		return nil, ErrNoTestimony
	}
	i := t.Cursor - 1
	if i < 0 {
		i = len(t.Statements) - 1
	}
	return t.Jump(i)
}

func (t *Testimony) Clear() {
	t.Title = ""
	t.Recording = false
	t.Statements = nil
	t.Cursor = -1
}

func (t *Testimony) String() string {
	lines := []string{fmt.Sprintf("Testimony: %s", t.Title)}
	for i, m := range t.Statements {
		marker := " "
		if i == t.Cursor {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s%d: %s", marker, i+1, m.Text))
	}
	return strings.Join(lines, "\n")
}

// routeTestimony handles `**` amend and `++` insert. It reports whether the
// message was consumed.
func (a *Area) routeTestimony(c *Client, m *ICMessage) bool {
	var apply func(*ICMessage) error
	var prefix string
	switch {
	case strings.HasPrefix(m.Text, "**"):
		apply, prefix = a.Testimony.Amend, "**"
	case strings.HasPrefix(m.Text, "++"):
		apply, prefix = a.Testimony.Insert, "++"
	default:
		return false
	}
	if !a.Testimony.Open() {
		return false
	}

	statement := m.clone()
	statement.Text = strings.TrimPrefix(m.Text, prefix)
	if statement.Pos == "" {
		statement.Pos = c.Pos
	}
	if err := apply(statement); err != nil {
		c.Message(failure.Message(err))
		return true
	}

	a.Messagef("%s updated statement %d.", c, a.Testimony.Cursor+1)
	a.showStatement(a.Testimony.Statements[a.Testimony.Cursor])
	return true
}

// showStatement plays a statement to everyone who can see, ignoring
// position filters.
func (a *Area) showStatement(m *ICMessage) {
	for _, r := range a.Clients() {
		if !r.Blinded {
			m.sendTo(r)
		}
	}
}

func (a *Area) StartRecording(title string) error {
	if err := a.Testimony.Start(title); err != nil {
		return err
	}
	a.Send("RT", "testimony1")
	a.Messagef("Recording testimony %q.", title)
	return nil
}

func (a *Area) recordStatement(m *ICMessage) {
	if a.Testimony.Append(m) {
		a.stopRecording()
	}
}

func (a *Area) stopRecording() {
	if !a.Testimony.Recording {
		return
	}
	a.Testimony.Recording = false
	a.Testimony.Cursor = -1
	a.Messagef("Testimony %q recorded with %d statements.", a.Testimony.Title, len(a.Testimony.Statements))
}

// NavigateTestimony moves the cursor and plays the statement it lands on.
func (a *Area) NavigateTestimony(move func() (*ICMessage, error)) error {
	statement, err := move()
	if err != nil {
		return err
	}
	a.showStatement(statement)
	return nil
}
