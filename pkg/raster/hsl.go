package raster

import "math"

// Non-separable blend helpers from the W3C compositing model. Colours are
// unpremultiplied RGB triples in [0, 1].

func lum(c [3]float64) float64 {
	return 0.30*c[0] + 0.59*c[1] + 0.11*c[2]
}

func sat(c [3]float64) float64 {
	return math.Max(c[0], math.Max(c[1], c[2])) - math.Min(c[0], math.Min(c[1], c[2]))
}

func clipColor(c [3]float64) [3]float64 {
	l := lum(c)
	n := math.Min(c[0], math.Min(c[1], c[2]))
	x := math.Max(c[0], math.Max(c[1], c[2]))
	if n < 0 {
		for i := range c {
			c[i] = l + (c[i]-l)*l/(l-n)
		}
	}
	if x > 1 {
		for i := range c {
			c[i] = l + (c[i]-l)*(1-l)/(x-l)
		}
	}
	return c
}

func setLum(c [3]float64, l float64) [3]float64 {
	d := l - lum(c)
	for i := range c {
		c[i] += d
	}
	return clipColor(c)
}

func setLum3(c [3]float64, l float64) (float64, float64, float64) {
	c = setLum(c, l)
	return c[0], c[1], c[2]
}

// setSat3 rescales c so that max-min equals s while keeping the ordering of
// its components.
func setSat3(c [3]float64, s float64) [3]float64 {
	lo, mid, hi := 0, 1, 2
	if c[lo] > c[mid] {
		lo, mid = mid, lo
	}
	if c[mid] > c[hi] {
		mid, hi = hi, mid
	}
	if c[lo] > c[mid] {
		lo, mid = mid, lo
	}

	var out [3]float64
	if c[hi] > c[lo] {
		out[mid] = (c[mid] - c[lo]) * s / (c[hi] - c[lo])
		out[hi] = s
	}
	out[lo] = 0
	return out
}
