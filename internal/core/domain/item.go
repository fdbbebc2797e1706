package domain

import "fmt"

// ItemStatus is the lifecycle status of an item.
type ItemStatus string

const (
	ItemStatusActive      ItemStatus = "active"
	ItemStatusInactive    ItemStatus = "inactive"
	ItemStatusMaintenance ItemStatus = "maintenance"
	ItemStatusRetired     ItemStatus = "retired"
	ItemStatusLost        ItemStatus = "lost"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusActive, ItemStatusInactive, ItemStatusMaintenance, ItemStatusRetired, ItemStatusLost:
		return true
	}
	return false
}

// Item is a pooled physical resource. AvailableQuantity counts the units not held by
// active or overdue transactions and always stays within [0, TotalQuantity].
type Item struct {
	Document          `bson:",inline"`
	Name              string     `json:"name" bson:"name"`
	Description       string     `json:"description,omitempty" bson:"description,omitempty"`
	Category          string     `json:"category,omitempty" bson:"category,omitempty"`
	Location          string     `json:"location,omitempty" bson:"location,omitempty"`
	QRCode            string     `json:"qrCode,omitempty" bson:"qrCode,omitempty"`
	Barcode           string     `json:"barcode,omitempty" bson:"barcode,omitempty"`
	TotalQuantity     int        `json:"totalQuantity" bson:"totalQuantity"`
	AvailableQuantity int        `json:"availableQuantity" bson:"availableQuantity"`
	IsCheckoutable    bool       `json:"isCheckoutable" bson:"isCheckoutable"`
	RequiresApproval  bool       `json:"requiresApproval" bson:"requiresApproval"`
	Status            ItemStatus `json:"status" bson:"status"`
	Condition         string     `json:"condition,omitempty" bson:"condition,omitempty"`
}

// CanBeCheckedOut reports whether new checkout requests are accepted for the item.
func (i *Item) CanBeCheckedOut() bool {
	return i.Status == ItemStatusActive && i.IsCheckoutable
}

// EffectiveAvailable is the available quantity minus units claimed by other pending
// requests, clamped at zero.
func (i *Item) EffectiveAvailable(pendingQuantity int) int {
	return max(0, i.AvailableQuantity-pendingQuantity)
}

// Reserve takes qty units out of the available pool.
func (i *Item) Reserve(qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", qty)
	}
	if i.AvailableQuantity < qty {
		return fmt.Errorf("only %d unit(s) of %q available, %d requested", i.AvailableQuantity, i.Name, qty)
	}
	i.AvailableQuantity -= qty
	return nil
}

// Release returns qty units to the pool, never exceeding the total.
func (i *Item) Release(qty int) {
	i.AvailableQuantity = min(i.TotalQuantity, i.AvailableQuantity+max(qty, 0))
}

// Adjust changes the total quantity by delta and moves the available quantity with it.
// Units held by open loans cannot be removed.
func (i *Item) Adjust(delta int) error {
	total := i.TotalQuantity + delta
	available := i.AvailableQuantity + delta
	if total < 0 {
		return fmt.Errorf("total quantity cannot become negative (have %d, delta %d)", i.TotalQuantity, delta)
	}
	if available < 0 {
		return fmt.Errorf("only %d unit(s) are not on loan, cannot remove %d", i.AvailableQuantity, -delta)
	}
	i.TotalQuantity = total
	i.AvailableQuantity = available
	return nil
}

// CheckInvariant verifies 0 <= available <= total.
func (i *Item) CheckInvariant() error {
	if i.TotalQuantity < 0 {
		return fmt.Errorf("item %s: total quantity %d is negative", i.ID, i.TotalQuantity)
	}
	if i.AvailableQuantity < 0 || i.AvailableQuantity > i.TotalQuantity {
		return fmt.Errorf("item %s: available quantity %d outside [0, %d]", i.ID, i.AvailableQuantity, i.TotalQuantity)
	}
	return nil
}
