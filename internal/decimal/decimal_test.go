package decimal

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulIdentity(t *testing.T) {
	a := FromUnits(50_000)
	got, err := a.Mul(One)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestMulZero(t *testing.T) {
	a := FromUnits(12345)
	got, err := a.Mul(Zero)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestMulExactSmallValues(t *testing.T) {
	// 1.0 BTC * 50000 USDT/BTC = 50000 USDT
	qty := FromUnits(1)
	price := FromUnits(50_000)
	got, err := qty.Mul(price)
	require.NoError(t, err)
	assert.Equal(t, FromUnits(50_000), got)
}

func TestMulFractional(t *testing.T) {
	// 0.5 BTC * 12.5 ETH/BTC = 6.25 ETH
	half := FromScaled(Scale / 2)
	twelveAndHalf := FromScaled(12*Scale + Scale/2)
	got, err := half.Mul(twelveAndHalf)
	require.NoError(t, err)
	assert.Equal(t, FromScaled(6*Scale+Scale/4), got)
}

func TestMulOverflow(t *testing.T) {
	big := FromUnits(1_000_000_000_000)
	_, err := big.Mul(big)
	require.ErrorIs(t, err, ErrOverflow)
}

// TestMulMatchesScaledTruth checks mul(a,b) against the integer truth of
// (a_scaled * b_scaled) / 10^7 computed by mulScaledNaive, an oracle
// that never forms the full 128-bit product, for a spread of
// representative market-sized values.
func TestMulMatchesScaledTruth(t *testing.T) {
	cases := []struct {
		a, b uint64 // scaled values
	}{
		{Scale, Scale},
		{5 * Scale, 3 * Scale},
		{Scale / 2, 25 * Scale},
		{7, 7},
		{123456789, 987654321},
		{Scale * 1_000_000, 1},
	}
	for _, c := range cases {
		got, err := FromScaled(c.a).Mul(FromScaled(c.b))
		require.NoError(t, err)

		// Exact equality against the independent oracle below.
		want := mulScaledNaive(c.a, c.b)
		assert.Equal(t, want, got.Scaled())
	}
}

// mulScaledNaive computes floor(a*b/Scale) by splitting each operand
// into its whole part (x / Scale) and its remainder (x % Scale), as an
// independent oracle that never multiplies two large numbers directly.
func mulScaledNaive(a, b uint64) uint64 {
	// a*b/Scale == whole*b + rem*b/Scale, where a == whole*Scale + rem.
	var total uint64
	whole := a / Scale
	rem := a % Scale
	// whole * b contributes whole*b directly (no further scaling needed).
	total = whole * b
	// rem/Scale * b == rem*b/Scale; compute via long division to avoid
	// overflow, since rem < Scale and b may still be large: rem*b could
	// overflow for the big fixtures, so guard using the package's own
	// verified primitives recursively is circular; instead split b too.
	bWhole := b / Scale
	bRem := b % Scale
	total += rem * bWhole
	total += (rem * bRem) / Scale
	return total
}

func TestDivRoundTrip(t *testing.T) {
	a := FromUnits(100)
	b := FromUnits(4)
	got, err := a.Div(b)
	require.NoError(t, err)
	assert.Equal(t, FromUnits(25), got)
}

func TestDivByZero(t *testing.T) {
	_, err := FromUnits(1).Div(Zero)
	require.ErrorIs(t, err, ErrDivByZero)
}

func TestAddOverflow(t *testing.T) {
	max := FromScaled(^uint64(0))
	_, err := max.Add(FromScaled(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSubNegative(t *testing.T) {
	_, err := FromUnits(1).Sub(FromUnits(2))
	require.ErrorIs(t, err, ErrNegative)
}

func TestString(t *testing.T) {
	assert.Equal(t, "5", FromUnits(5).String())
	assert.Equal(t, "0", Zero.String())
	assert.Equal(t, "12.5", FromScaled(12*Scale+Scale/2).String())
	assert.Equal(t, "0.0000001", FromScaled(1).String())
	assert.Equal(t, "1", One.String())
}

// TestAddSubRoundTripProperty uses testing/quick to check that, for
// arbitrary scaled values that don't overflow, (a+b)-b == a.
func TestAddSubRoundTripProperty(t *testing.T) {
	f := func(a, b uint32) bool {
		da := FromScaled(uint64(a))
		db := FromScaled(uint64(b))
		sum, err := da.Add(db)
		if err != nil {
			return true
		}
		back, err := sum.Sub(db)
		if err != nil {
			return false
		}
		return back.Equal(da)
	}
	require.NoError(t, quick.Check(f, nil))
}
