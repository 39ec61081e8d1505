package analysis

import (
	"math"
	"math/cmplx"
)

// FFT is an in-place iterative radix-2 transform of real samples.
// len(data) must be a power of two.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n&(n-1) != 0 {
		panic("fft requires power of 2 length")
	}
	out := make([]complex128, n)
	bits := 0
	for 1<<bits < n {
		bits++
	}
	for i, v := range data {
		out[reverse(i, bits)] = complex(v, 0)
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				a, b := out[start+k], w*out[start+k+half]
				out[start+k], out[start+k+half] = a+b, a-b
				w *= step
			}
		}
	}
	return out
}

func reverse(i, bits int) int {
	r := 0
	for b := 0; b < bits; b++ {
		r = r<<1 | i&1
		i >>= 1
	}
	return r
}

// PowerSpectrum removes the mean, zero-pads to a power of two and returns
// the magnitude of each bin up to Nyquist along with the padded length.
func PowerSpectrum(data []float64) ([]float64, int) {
	n := 1
	for n < len(data) {
		n *= 2
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	if len(data) > 0 {
		mean /= float64(len(data))
	}
	padded := make([]float64, n)
	for i, v := range data {
		padded[i] = v - mean
	}

	fft := FFT(padded)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps, n
}

// Dominant returns the frequency of the strongest non-constant bin for
// samples taken at rate per unit time, or 0 when the signal is flat.
func Dominant(data []float64, rate float64) float64 {
	ps, n := PowerSpectrum(data)
	best, idx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, idx = ps[i], i
		}
	}
	if idx == 0 || best < 1e-9 {
		return 0
	}
	return float64(idx) * rate / float64(n)
}
