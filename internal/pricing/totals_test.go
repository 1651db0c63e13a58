package pricing

import (
	"testing"
)

func TestComputeTotalsMixedCart(t *testing.T) {
	totals := ComputeTotals([]Line{
		{Price: 29.99, Quantity: 2},
		{Price: 19.99, Quantity: 3},
	})

	if totals.Subtotal != 119.95 {
		t.Fatalf("expected subtotal 119.95, got %v", totals.Subtotal)
	}
	if totals.Tax != 9.60 {
		t.Fatalf("expected tax 9.60, got %v", totals.Tax)
	}
	if totals.Shipping != 5.99 {
		t.Fatalf("expected shipping 5.99, got %v", totals.Shipping)
	}
	if totals.Total != 135.54 {
		t.Fatalf("expected total 135.54, got %v", totals.Total)
	}
}

func TestComputeTotalsInvariant(t *testing.T) {
	carts := [][]Line{
		{{Price: 0.1, Quantity: 3}},
		{{Price: 9.99, Quantity: 1}, {Price: 0.01, Quantity: 7}},
		{{Price: 1234.56, Quantity: 4}},
		{{Price: 3.33, Quantity: 3}, {Price: 6.67, Quantity: 1}},
	}
	for _, lines := range carts {
		got := ComputeTotals(lines)
		if want := RoundCents(got.Subtotal * 0.08); got.Tax != want {
			t.Fatalf("tax %v != round(subtotal*0.08) %v for %+v", got.Tax, want, lines)
		}
		if want := RoundCents(got.Subtotal + got.Tax + got.Shipping); got.Total != want {
			t.Fatalf("total %v != round(sum) %v for %+v", got.Total, want, lines)
		}
	}
}

func TestComputeTotalsAvoidsFloatDrift(t *testing.T) {
	totals := ComputeTotals([]Line{{Price: 0.1, Quantity: 3}})
	if totals.Subtotal != 0.3 {
		t.Fatalf("expected subtotal 0.3, got %v", totals.Subtotal)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		135.54: 13554,
		0.29:   29,
		5.99:   599,
		10:     1000,
	}
	for amount, want := range cases {
		if got := MinorUnits(amount); got != want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", amount, got, want)
		}
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(19.99, 3); got != 59.97 {
		t.Fatalf("expected 59.97, got %v", got)
	}
}
