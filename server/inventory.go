package main

const (
	InventorySize = 9
	StackMax      = 64
)

// Slot is one inventory stack
type Slot struct {
	Item  Item `json:"item"`
	Count int  `json:"count"`
}

// Inventory is a fixed hotbar of stacks
type Inventory [InventorySize]Slot

// Currency maps a resource to a nonnegative balance
type Currency map[Resource]int

// room returns how many more units of it the inventory can absorb
func (inv *Inventory) room(it Item) int {
	n := 0
	for _, s := range inv {
		switch {
		case s.Count == 0:
			n += StackMax
		case s.Item == it:
			n += StackMax - s.Count
		}
	}
	return n
}

// Add stores amount units of it, topping up matching stacks in slot order before
// opening empty slots. All or nothing: on false the inventory is untouched.
func (inv *Inventory) Add(it Item, amount int) bool {
	if !it.Valid() || amount <= 0 {
		return false
	}
	if inv.room(it) < amount {
		return false
	}
	left := amount
	for i := range inv {
		if left == 0 {
			break
		}
		s := &inv[i]
		if s.Count > 0 && s.Item == it && s.Count < StackMax {
			n := min(StackMax-s.Count, left)
			s.Count += n
			left -= n
		}
	}
	for i := range inv {
		if left == 0 {
			break
		}
		s := &inv[i]
		if s.Count == 0 {
			n := min(StackMax, left)
			*s = Slot{Item: it, Count: n}
			left -= n
		}
	}
	return true
}

// Holds reports whether slot i has at least one unit of it
func (inv *Inventory) Holds(i int, it Item) bool {
	if i < 0 || i >= InventorySize {
		return false
	}
	return inv[i].Item == it && inv[i].Count > 0
}

// Take removes one unit from slot i, clearing the slot when it empties
func (inv *Inventory) Take(i int) {
	s := &inv[i]
	if s.Count <= 0 {
		return
	}
	s.Count--
	if s.Count == 0 {
		*s = Slot{}
	}
}

// Count returns the total units of it across all slots
func (inv *Inventory) Count(it Item) int {
	n := 0
	for _, s := range inv {
		if s.Item == it {
			n += s.Count
		}
	}
	return n
}

// Clear empties every slot
func (inv *Inventory) Clear() {
	*inv = Inventory{}
}

// CanAfford reports whether every resource in cost is covered
func CanAfford(c Currency, cost map[Resource]int) bool {
	for r, amt := range cost {
		if c[r] < amt {
			return false
		}
	}
	return true
}

// Deduct subtracts cost. Callers check CanAfford first; no clamping here.
func Deduct(c Currency, cost map[Resource]int) {
	for r, amt := range cost {
		c[r] -= amt
	}
}

// NewCurrency returns a zero balance for every resource
func NewCurrency() Currency {
	c := make(Currency, resourceCount)
	for r := Resource(0); r < resourceCount; r++ {
		c[r] = 0
	}
	return c
}
