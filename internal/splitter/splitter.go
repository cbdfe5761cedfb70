// Package splitter computes per-participant shares for a bill. All arithmetic
// is done in decimal and every result satisfies: sum of shares == bill total,
// with the rounding residual assigned to the bill creator's share.
package splitter

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a bill line item with the users it is assigned to. Items with
// multiple assignees are divided equally among them.
type Item struct {
	Price     decimal.Decimal
	Assignees []uuid.UUID
}

// Equal divides total evenly among participants.
func Equal(total decimal.Decimal, participants []uuid.UUID, creatorID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total cannot be negative")
	}

	perPerson := total.Div(decimal.NewFromInt(int64(len(participants)))).Round(2)
	shares := make(map[uuid.UUID]decimal.Decimal, len(participants))
	for _, p := range participants {
		if _, dup := shares[p]; dup {
			return nil, fmt.Errorf("duplicate participant %s", p)
		}
		shares[p] = perPerson
	}

	applyResidual(shares, total, creatorID)
	return shares, nil
}

// ByItem assigns each item's price equally among its assignees, then spreads
// tax and tip proportionally to each participant's item subtotal. The
// participant set is the union of all assignees.
func ByItem(items []Item, taxAmount, tipAmount decimal.Decimal, creatorID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	subtotals := make(map[uuid.UUID]decimal.Decimal)
	billSubtotal := decimal.Zero

	for i, item := range items {
		if len(item.Assignees) == 0 {
			return nil, fmt.Errorf("item %d has no assignees", i+1)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("item %d has a negative price", i+1)
		}
		billSubtotal = billSubtotal.Add(item.Price)

		perPerson := item.Price.Div(decimal.NewFromInt(int64(len(item.Assignees))))
		for _, assignee := range item.Assignees {
			subtotals[assignee] = subtotals[assignee].Add(perPerson)
		}
	}

	if len(subtotals) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	extras := taxAmount.Add(tipAmount)
	total := billSubtotal.Add(extras)

	shares := make(map[uuid.UUID]decimal.Decimal, len(subtotals))
	for user, subtotal := range subtotals {
		share := subtotal
		if billSubtotal.IsPositive() && !extras.IsZero() {
			share = share.Add(extras.Mul(subtotal).Div(billSubtotal))
		}
		shares[user] = share.Round(2)
	}

	applyResidual(shares, total, creatorID)
	return shares, nil
}

// Custom validates caller-provided amounts: every participant covered exactly
// once, nothing extra, no negative amounts, and the sum within one minor unit
// of the total. The residual is shifted onto the creator's share.
func Custom(total decimal.Decimal, amounts map[uuid.UUID]decimal.Decimal, participants []uuid.UUID, creatorID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if len(amounts) != len(participants) {
		return nil, fmt.Errorf("custom amounts must cover exactly the participant set")
	}

	shares := make(map[uuid.UUID]decimal.Decimal, len(participants))
	sum := decimal.Zero
	for _, p := range participants {
		amount, ok := amounts[p]
		if !ok {
			return nil, fmt.Errorf("missing custom amount for participant %s", p)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("custom amount for participant %s is negative", p)
		}
		rounded := amount.Round(2)
		shares[p] = rounded
		sum = sum.Add(rounded)
	}

	if sum.Sub(total).Abs().GreaterThan(decimal.New(1, -2)) {
		return nil, fmt.Errorf("custom amounts sum to %s, bill total is %s", sum, total)
	}

	applyResidual(shares, total, creatorID)
	for _, p := range participants {
		if shares[p].IsNegative() {
			return nil, fmt.Errorf("residual assignment drives participant %s negative", p)
		}
	}
	return shares, nil
}

// applyResidual adds total minus the rounded sum to the creator's share, or
// to the smallest participant id when the creator holds no share, so the sum
// invariant holds exactly and the absorbing participant is deterministic.
func applyResidual(shares map[uuid.UUID]decimal.Decimal, total decimal.Decimal, creatorID uuid.UUID) {
	sum := decimal.Zero
	for _, share := range shares {
		sum = sum.Add(share)
	}
	residual := total.Sub(sum)
	if residual.IsZero() {
		return
	}

	target := creatorID
	if _, ok := shares[target]; !ok {
		ids := make([]uuid.UUID, 0, len(shares))
		for id := range shares {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		target = ids[0]
	}
	shares[target] = shares[target].Add(residual)
}
