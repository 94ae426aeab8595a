package core

// CostedItem is the shared shape of anything priced by unit price times
// occurrence.
type CostedItem struct {
	Name            string
	Description     string
	PaymentRequired bool
	UnitPrice       Money
	Occurrence      int
	// Total is a cache of UnitPrice * Occurrence refreshed by Normalize.
	Total Money
}

// Costed exposes the price of an expense or a quotation.
type Costed interface {
	// Value is the effective unit price.
	Value() Money
	// Amount is the effective total.
	Amount() Money
}

// NewCostedItem returns a normalized item that requires payment.
func NewCostedItem(name, description string, unitPrice Money, occurrence int) CostedItem {
	c := CostedItem{
		Name:            name,
		Description:     description,
		PaymentRequired: true,
		UnitPrice:       unitPrice,
		Occurrence:      occurrence,
	}
	c.Normalize()
	return c
}

// Normalize runs before every save: occurrence is clamped to 1 and the
// total recomputed.
func (c *CostedItem) Normalize() {
	if c.Occurrence < 1 {
		c.Occurrence = 1
	}
	c.Total = c.UnitPrice.Mul(c.Occurrence)
}

// SetUnitPrice coerces v into the unit price. A bare number keeps the
// current currency.
func (c *CostedItem) SetUnitPrice(v any) error {
	m, err := CoerceMoney(v, c.UnitPrice.Currency)
	if err != nil {
		return err
	}
	if m.IsNegative() {
		return &InvalidMoneyError{Value: v}
	}
	c.UnitPrice = m
	return nil
}

func (c CostedItem) Validate() error {
	if err := validateName(c.Name, maxNameLength); err != nil {
		return err
	}
	if err := validateDescription(c.Description); err != nil {
		return err
	}
	if c.UnitPrice.IsNegative() {
		return &InvalidMoneyError{Value: c.UnitPrice.String()}
	}
	return nil
}
