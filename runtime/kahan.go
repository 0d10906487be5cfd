package runtime

// KahanSum is a Kahan-compensated running summation held as a pair of
// float32s, per spec.md §9: "Do not replace with plain f64; the test
// properties depend on the corrected summation matching dense segment
// sequences." Used once per forward-difference level so error introduced
// by hundreds of successive segment additions does not accumulate.
type KahanSum struct {
	Sum float32
	C   float32 // running compensation for lost low-order bits
}

// Add adds v to the sum with compensation and returns the new total.
func (k *KahanSum) Add(v float32) float32 {
	y := v - k.C
	t := k.Sum + y
	k.C = (t - k.Sum) - y
	k.Sum = t
	return k.Sum
}

// Reset sets the sum to v and zeroes its compensation term.
func (k *KahanSum) Reset(v float32) {
	k.Sum = v
	k.C = 0
}
