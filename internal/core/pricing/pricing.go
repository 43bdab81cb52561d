// Package pricing holds the stateless money math shared by the cart and product display.
// Every derived price is rounded to 2 places right after the multiplication or division
// that produced it.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to currency precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func factor(discountPercent int) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(discountPercent)).Div(hundred))
}

// DiscountedPrice applies a percentage discount. A discount of 0 or less returns the
// original price unchanged; 100 or more makes the price zero.
func DiscountedPrice(original decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent <= 0 {
		return original
	}
	if discountPercent >= 100 {
		return decimal.Zero
	}
	return Round2(original.Mul(factor(discountPercent)))
}

// OriginalPriceFromDiscounted inverts DiscountedPrice. A 100% discount destroys the
// original price, so the input is returned as-is in that case.
func OriginalPriceFromDiscounted(discounted decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent <= 0 || discountPercent >= 100 {
		return discounted
	}
	return Round2(discounted.Div(factor(discountPercent)))
}

func Savings(original, discounted decimal.Decimal) decimal.Decimal {
	return original.Sub(discounted)
}

// LineTotal is unit * quantity at currency precision.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return Round2(unit.Mul(decimal.NewFromInt(int64(quantity))))
}

// ValidDiscount reports whether pct is a usable discount percentage.
func ValidDiscount(pct int) bool {
	return pct >= 0 && pct <= 100
}
