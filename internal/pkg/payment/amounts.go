package payment

// Amount limits in currency minor units (cents). Client-supplied amounts are
// adversarial and are clamped into these bounds at creation.
const (
	MinServiceAmount int64 = 100
	MaxServiceAmount int64 = 100_000
	MinTipAmount     int64 = 0
	MaxTipAmount     int64 = 50_000
)

// ClampAmount floors the value to an integer and saturates it into
// [min, max]. It is total: out-of-range input never fails, it clamps.
func ClampAmount(amount float64, min, max int64) int64 {
	value := int64(amount)
	if float64(value) > amount {
		// int64 conversion truncates toward zero; floor negatives properly.
		value--
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampServiceAmount applies the service fee bounds.
func ClampServiceAmount(amount float64) int64 {
	return ClampAmount(amount, MinServiceAmount, MaxServiceAmount)
}

// ClampTipAmount applies the tip bounds.
func ClampTipAmount(amount float64) int64 {
	return ClampAmount(amount, MinTipAmount, MaxTipAmount)
}
