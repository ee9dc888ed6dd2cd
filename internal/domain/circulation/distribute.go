package circulation

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Distribution methods.
const (
	ByEqualShare = "equal"
	ByArea       = "area"
)

// Share is one property's part of a building-level amount.
type Share struct {
	PropertyID primitive.ObjectID
	AreaSqm    decimal.Decimal
	Amount     decimal.Decimal
}

// Distribute splits total across the given properties, rounding each share
// to cents and assigning the rounding remainder to the last share so the
// shares always add up to total. Area distribution falls back to equal
// shares when no property has an area.
func Distribute(total decimal.Decimal, shares []Share, method string) []Share {
	if len(shares) == 0 || !total.IsPositive() {
		return nil
	}

	out := make([]Share, len(shares))
	copy(out, shares)

	totalArea := decimal.Zero
	for _, s := range out {
		totalArea = totalArea.Add(s.AreaSqm)
	}
	if method != ByArea || !totalArea.IsPositive() {
		method = ByEqualShare
	}

	n := decimal.NewFromInt(int64(len(out)))
	allocated := decimal.Zero
	for i := range out {
		if i == len(out)-1 {
			out[i].Amount = total.Round(2).Sub(allocated)
			break
		}
		var amt decimal.Decimal
		if method == ByArea {
			amt = total.Mul(out[i].AreaSqm).Div(totalArea)
		} else {
			amt = total.Div(n)
		}
		out[i].Amount = amt.Round(2)
		allocated = allocated.Add(out[i].Amount)
	}
	return out
}
