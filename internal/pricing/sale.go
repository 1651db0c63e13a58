package pricing

import "fmt"

// CompareAtInput is a partial pricing update; nil means unchanged.
type CompareAtInput struct {
	Price          *float64
	CompareAtPrice *float64
}

type CompareAtResult struct {
	Price          float64
	CompareAtPrice float64
}

// IsOnSale reports whether a compare-at price marks the product as discounted.
func IsOnSale(price, compareAtPrice float64) bool {
	return compareAtPrice > 0 && compareAtPrice > price
}

func ValidatePricing(price, compareAtPrice float64) error {
	if price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if compareAtPrice < 0 {
		return fmt.Errorf("compareAtPrice must not be negative")
	}
	if compareAtPrice > 0 && compareAtPrice <= price {
		return fmt.Errorf("compareAtPrice must be greater than price")
	}
	return nil
}

// ResolvePricingUpdate merges a partial update onto existing values and
// validates the result. Setting compareAtPrice to 0 removes the discount.
func ResolvePricingUpdate(existingPrice, existingCompareAt float64, input CompareAtInput) (CompareAtResult, error) {
	result := CompareAtResult{Price: existingPrice, CompareAtPrice: existingCompareAt}
	if input.Price != nil {
		result.Price = *input.Price
	}
	if input.CompareAtPrice != nil {
		result.CompareAtPrice = *input.CompareAtPrice
	}
	if err := ValidatePricing(result.Price, result.CompareAtPrice); err != nil {
		return CompareAtResult{}, err
	}
	return result, nil
}
