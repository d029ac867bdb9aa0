// Package pricing computes order subtotals, taxes, tips and totals.
//
// All arithmetic is done on shopspring decimals and every persisted amount is
// rounded to two places (currency minor units). Nothing here performs I/O.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places kept for currency amounts.
const MinorUnits = 2

// AllCategories scopes a rate to every line.
const AllCategories = "all"

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrInvalidInput = errors.New("invalid pricing input")
)

var hundred = decimal.NewFromInt(100)

type Line struct {
	UnitPrice  decimal.Decimal
	Quantity   int
	CategoryID string
}

type Rate struct {
	ID        string
	Name      string
	Percent   decimal.Decimal
	AppliesTo string
	SortOrder int
}

func (r Rate) appliesTo(categoryID string) bool {
	return r.AppliesTo == "" || r.AppliesTo == AllCategories || r.AppliesTo == categoryID
}

// Tip is either a percentage of the subtotal or a literal amount. Percentage wins
// when both are set.
type Tip struct {
	Percentage *decimal.Decimal
	Amount     *decimal.Decimal
}

type Options struct {
	PricesIncludeTax bool
	Tip              *Tip
}

type TaxAmount struct {
	RateID string
	Name   string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

type Breakdown struct {
	Subtotal      decimal.Decimal
	Taxes         []TaxAmount
	TaxTotal      decimal.Decimal
	Tip           decimal.Decimal
	TipPercentage *decimal.Decimal
	Total         decimal.Decimal
}

// Calculate prices a cart. Rates are applied in ascending SortOrder, each against
// the tax-exclusive amount of the lines it covers. Tips are never taxed.
func Calculate(lines []Line, rates []Rate, opts Options) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, ErrEmptyCart
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return Breakdown{}, fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidInput, i)
		}
		if l.UnitPrice.IsNegative() {
			return Breakdown{}, fmt.Errorf("%w: line %d price must not be negative", ErrInvalidInput, i)
		}
	}

	ordered := make([]Rate, len(rates))
	copy(ordered, rates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })
	for _, r := range ordered {
		if r.Percent.IsNegative() {
			return Breakdown{}, fmt.Errorf("%w: tax rate %q is negative", ErrInvalidInput, r.Name)
		}
	}

	net := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if opts.PricesIncludeTax {
			embedded := decimal.Zero
			for _, r := range ordered {
				if r.appliesTo(l.CategoryID) {
					embedded = embedded.Add(r.Percent)
				}
			}
			gross = gross.Mul(hundred).Div(hundred.Add(embedded))
		}
		net[i] = gross
	}

	var b Breakdown
	subtotal := decimal.Zero
	for _, n := range net {
		subtotal = subtotal.Add(n)
	}
	b.Subtotal = subtotal.Round(MinorUnits)

	b.TaxTotal = decimal.Zero
	for _, r := range ordered {
		base := decimal.Zero
		for i, l := range lines {
			if r.appliesTo(l.CategoryID) {
				base = base.Add(net[i])
			}
		}
		amount := base.Mul(r.Percent).Div(hundred).Round(MinorUnits)
		b.Taxes = append(b.Taxes, TaxAmount{RateID: r.ID, Name: r.Name, Rate: r.Percent, Amount: amount})
		b.TaxTotal = b.TaxTotal.Add(amount)
	}

	tip, pct, err := computeTip(opts.Tip, b.Subtotal)
	if err != nil {
		return Breakdown{}, err
	}
	b.Tip = tip
	b.TipPercentage = pct

	b.Total = b.Subtotal.Add(b.TaxTotal).Add(b.Tip)
	if b.Total.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: total must not be negative", ErrInvalidInput)
	}
	return b, nil
}

func computeTip(t *Tip, subtotal decimal.Decimal) (decimal.Decimal, *decimal.Decimal, error) {
	if t == nil {
		return decimal.Zero, nil, nil
	}
	if t.Percentage != nil {
		if t.Percentage.IsNegative() {
			return decimal.Zero, nil, fmt.Errorf("%w: tip percentage must not be negative", ErrInvalidInput)
		}
		pct := *t.Percentage
		return subtotal.Mul(pct).Div(hundred).Round(MinorUnits), &pct, nil
	}
	if t.Amount != nil {
		if t.Amount.IsNegative() {
			return decimal.Zero, nil, fmt.Errorf("%w: tip amount must not be negative", ErrInvalidInput)
		}
		return t.Amount.Round(MinorUnits), nil, nil
	}
	return decimal.Zero, nil, nil
}

// Consistent reports whether total == subtotal + taxTotal + tip within one
// minor unit.
func (b Breakdown) Consistent() bool {
	diff := b.Subtotal.Add(b.TaxTotal).Add(b.Tip).Sub(b.Total).Abs()
	return diff.LessThanOrEqual(decimal.New(1, -MinorUnits))
}
