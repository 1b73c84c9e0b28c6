package gameserver

import (
	"github.com/cfoust/courtroom/pkg/evidence"
	"github.com/cfoust/courtroom/pkg/failure"
)

// sendEvidence recomputes and sends c's private view of the list.
func (a *Area) sendEvidence(c *Client) {
	view := a.Evidence.View(c.access())
	c.Evidence = view

	fields := make([]interface{}, len(view.Items))
	for i, item := range view.Items {
		fields[i] = item.Wire()
	}
	c.Send("LE", fields...)
}

func (a *Area) sendEvidenceAll() {
	for _, c := range a.Clients() {
		a.sendEvidence(c)
	}
}

// resolveEvidence maps a 0-based index from c's view to the authoritative
// 0-based index.
func (a *Area) resolveEvidence(c *Client, index int) (int, error) {
	authoritative, ok := c.Evidence.Resolve(index + 1)
	if !ok {
		return 0, evidence.ErrNotFound
	}
	return authoritative, nil
}

func (a *Area) audit(c *Client, action, name string) {
	a.MessageOwners(c.String() + " " + action + " evidence " + name + ".")
}

func (a *Area) AddEvidence(c *Client, name, description, image string) error {
	item, err := a.Evidence.Add(c.access(), name, description, image)
	if err != nil {
		return err
	}
	a.audit(c, "added", item.Name)
	a.sendEvidenceAll()
	return nil
}

// DeleteEvidence removes an item by c's 0-based local index. Under HiddenCM
// the item moves into c's inventory instead of disappearing.
func (a *Area) DeleteEvidence(c *Client, index int) error {
	authoritative, err := a.resolveEvidence(c, index)
	if err != nil {
		return err
	}
	removed, transfer, err := a.Evidence.Delete(c.access(), authoritative)
	if err != nil {
		return err
	}

	for _, other := range a.Clients() {
		switch {
		case other.HiddenIn == authoritative:
			other.HiddenIn = -1
			other.Message("The evidence you were hiding in is gone.")
		case other.HiddenIn > authoritative:
			other.HiddenIn--
		}
	}
	a.renumberLinkEvidence(func(i int) int {
		switch {
		case i == authoritative:
			return -1
		case i > authoritative:
			return i - 1
		}
		return i
	})

	if transfer {
		if err := c.Inventory.Add(removed); err != nil {
			return err
		}
		c.Messagef("%s was moved to your inventory.", removed.Name)
		a.audit(c, "took", removed.Name)
	} else {
		a.audit(c, "deleted", removed.Name)
	}
	a.sendEvidenceAll()
	return nil
}

func (a *Area) EditEvidence(c *Client, index int, name, description, image string) error {
	authoritative, err := a.resolveEvidence(c, index)
	if err != nil {
		return err
	}
	item, err := a.Evidence.Edit(c.access(), authoritative, name, description, image)
	if err != nil {
		return err
	}
	a.audit(c, "edited", item.Name)
	a.sendEvidenceAll()
	return nil
}

// renumberLinkEvidence rewrites the evidence each outgoing link requires.
// A negative result drops the requirement.
func (a *Area) renumberLinkEvidence(move func(int) int) {
	for _, link := range a.Links {
		if len(link.Evidence) == 0 {
			continue
		}
		kept := make([]int, 0, len(link.Evidence))
		for _, i := range link.Evidence {
			if moved := move(i); moved >= 0 {
				kept = append(kept, moved)
			}
		}
		link.Evidence = kept
	}
}

// SwapEvidence exchanges two items by c's 1-based local indices.
func (a *Area) SwapEvidence(c *Client, first, second int) error {
	i, ok := c.Evidence.Resolve(first)
	j, ok2 := c.Evidence.Resolve(second)
	if !ok || !ok2 {
		return evidence.ErrNotFound
	}
	if err := a.Evidence.Swap(c.access(), i, j); err != nil {
		return err
	}
	for _, other := range a.Clients() {
		switch other.HiddenIn {
		case i:
			other.HiddenIn = j
		case j:
			other.HiddenIn = i
		}
	}
	a.renumberLinkEvidence(func(k int) int {
		switch k {
		case i:
			return j
		case j:
			return i
		}
		return k
	})
	a.audit(c, "swapped", "")
	a.sendEvidenceAll()
	return nil
}

// SetEvidenceTrigger attaches a command to an item by c's 1-based local index.
func (a *Area) SetEvidenceTrigger(c *Client, local int, trigger, line string) error {
	i, ok := c.Evidence.Resolve(local)
	if !ok {
		return evidence.ErrNotFound
	}
	if err := a.Evidence.SetTrigger(c.access(), i, trigger, line); err != nil {
		return err
	}
	item, _ := a.Evidence.Get(i)
	a.audit(c, "set a "+trigger+" trigger on", item.Name)
	return nil
}

// Hide puts c inside an item by its 1-based local index.
func (a *Area) Hide(c *Client, local int) error {
	i, ok := c.Evidence.Resolve(local)
	if !ok {
		return evidence.ErrNotFound
	}
	item, _ := a.Evidence.Get(i)
	if !item.CanHideIn {
		return failure.Domainf("You can't hide in %s.", item.Name)
	}
	c.HiddenIn = i
	c.Messagef("You are now hiding in %s.", item.Name)
	a.MessageOwners(c.String() + " is hiding in " + item.Name + ".")
	return nil
}

func (a *Area) Unhide(c *Client) error {
	if c.HiddenIn < 0 {
		return failure.Domain("You are not hiding.")
	}
	c.HiddenIn = -1
	c.Message("You are no longer hiding.")
	return nil
}

// presentEvidence handles an IC message that shows evidence. It returns the
// authoritative index, or -1 when the reference was bad.
func (a *Area) presentEvidence(c *Client, local int) int {
	authoritative, ok := c.Evidence.Resolve(local)
	if !ok {
		return -1
	}
	if a.Evidence.Reveal(authoritative) {
		a.sendEvidenceAll()
	}

	item, _ := a.Evidence.Get(authoritative)
	if line, ok := item.Triggers["present"]; ok {
		a.server().runTrigger(c, a, line)
	}
	return authoritative
}

// localEvidence maps an authoritative index into r's view, 0 if r can't see it.
func localEvidence(r *Client, authoritative int) int {
	if authoritative < 0 {
		return 0
	}
	for local, index := range r.Evidence.Remap {
		if local > 0 && index == authoritative+1 {
			return local
		}
	}
	return 0
}
