package raster

import (
	"image"
	"math"
)

// Composite draws src onto dst with src's origin placed at at, combining
// pixels with mode. Source pixels that fall outside dst are clipped.
//
// Fully transparent source pixels leave dst untouched. An opaque source
// pixel composited with Normal replaces the destination pixel exactly.
func Composite(dst, src *image.RGBA, at image.Point, mode Mode) {
	sb := src.Bounds()
	r := sb.Sub(sb.Min).Add(at).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		sy := y - at.Y + sb.Min.Y
		so := src.PixOffset(r.Min.X-at.X+sb.Min.X, sy)
		do := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			s := src.Pix[so : so+4 : so+4]
			d := dst.Pix[do : do+4 : do+4]
			d[0], d[1], d[2], d[3] = BlendPixel(d[0], d[1], d[2], d[3], s[0], s[1], s[2], s[3], mode)
			so += 4
			do += 4
		}
	}
}

// BlendPixel combines one premultiplied source pixel (sr..sa) with one
// premultiplied backdrop pixel (dr..da) and returns the premultiplied result.
func BlendPixel(dr, dg, db, da, sr, sg, sb, sa uint8, mode Mode) (uint8, uint8, uint8, uint8) {
	if sa == 0 && sr == 0 && sg == 0 && sb == 0 {
		return dr, dg, db, da
	}
	if mode == Normal || da == 0 {
		if sa == 255 {
			return sr, sg, sb, sa
		}
		inv := 255 - uint32(sa)
		return over(sr, dr, inv), over(sg, dg, inv), over(sb, db, inv), over(sa, da, inv)
	}

	as := float64(sa) / 255
	ab := float64(da) / 255
	cs := [3]float64{unpremul(sr, sa), unpremul(sg, sa), unpremul(sb, sa)}
	cb := [3]float64{unpremul(dr, da), unpremul(dg, da), unpremul(db, da)}

	var mixed [3]float64
	switch mode {
	case Hue:
		mixed[0], mixed[1], mixed[2] = setLum3(setSat3(cs, sat(cb)), lum(cb))
	case Saturation:
		mixed[0], mixed[1], mixed[2] = setLum3(setSat3(cb, sat(cs)), lum(cb))
	case Color:
		mixed[0], mixed[1], mixed[2] = setLum3(cs, lum(cb))
	case Luminosity:
		mixed[0], mixed[1], mixed[2] = setLum3(cb, lum(cs))
	default:
		fn := separable(mode)
		for i := range mixed {
			mixed[i] = fn(cb[i], cs[i])
		}
	}

	// co = αs·((1-αb)·Cs + αb·B) + (1-αs)·αb·Cb
	ao := as + ab*(1-as)
	out := [3]uint8{}
	for i := range out {
		c := as*((1-ab)*cs[i]+ab*mixed[i]) + (1-as)*ab*cb[i]
		out[i] = toByte(c)
	}
	return out[0], out[1], out[2], toByte(ao)
}

// over computes s + d·inv/255 with rounding, the premultiplied source-over
// operator for one channel.
func over(s, d uint8, inv uint32) uint8 {
	v := uint32(s) + (uint32(d)*inv+127)/255
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func unpremul(c, a uint8) float64 {
	if a == 0 {
		return 0
	}
	v := float64(c) / float64(a)
	if v > 1 {
		v = 1
	}
	return v
}

func toByte(v float64) uint8 {
	v = math.Round(v * 255)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

// separable returns the per-channel blend function B(Cb, Cs) for mode.
func separable(mode Mode) func(cb, cs float64) float64 {
	switch mode {
	case Multiply:
		return func(cb, cs float64) float64 { return cb * cs }
	case Screen:
		return screen
	case Overlay:
		return func(cb, cs float64) float64 { return hardLight(cs, cb) }
	case Darken:
		return math.Min
	case Lighten:
		return math.Max
	case ColorDodge:
		return func(cb, cs float64) float64 {
			switch {
			case cb == 0:
				return 0
			case cs >= 1:
				return 1
			}
			return math.Min(1, cb/(1-cs))
		}
	case ColorBurn:
		return func(cb, cs float64) float64 {
			switch {
			case cb >= 1:
				return 1
			case cs == 0:
				return 0
			}
			return 1 - math.Min(1, (1-cb)/cs)
		}
	case SoftLight:
		return softLight
	case HardLight:
		return hardLight
	case Difference:
		return func(cb, cs float64) float64 { return math.Abs(cb - cs) }
	case Exclusion:
		return func(cb, cs float64) float64 { return cb + cs - 2*cb*cs }
	}
	return func(_, cs float64) float64 { return cs }
}

func screen(cb, cs float64) float64 { return cb + cs - cb*cs }

func hardLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb * 2 * cs
	}
	return screen(cb, 2*cs-1)
}

func softLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb - (1-2*cs)*cb*(1-cb)
	}
	var d float64
	if cb <= 0.25 {
		d = ((16*cb-12)*cb + 4) * cb
	} else {
		d = math.Sqrt(cb)
	}
	return cb + (2*cs-1)*(d-cb)
}
