package geo

// Bbox is an axis-aligned geographic rectangle described by its
// south-west and north-east corners. Its longitude interval wraps the
// antimeridian iff SW.Lng() > NE.Lng().
type Bbox struct {
	SW Point
	NE Point
}

// IsWrapAround reports whether the bbox's longitude interval crosses
// the antimeridian.
func (b Bbox) IsWrapAround() bool {
	return b.SW.LngFix > b.NE.LngFix
}

// ContainsPoint reports whether p lies within b, inclusive on all
// four edges. Longitude containment honors antimeridian wrap-around.
func (b Bbox) ContainsPoint(p Point) bool {
	if p.LatFix < b.SW.LatFix || p.LatFix > b.NE.LatFix {
		return false
	}

	if b.IsWrapAround() {
		return p.LngFix >= b.SW.LngFix || p.LngFix <= b.NE.LngFix
	}

	return p.LngFix >= b.SW.LngFix && p.LngFix <= b.NE.LngFix
}

// ExtendBbox returns a bbox grown by 10% of each side length in every
// direction, clipped to the legal lat/lng ranges. A wrap-around input
// remains wrap-around in the result.
func ExtendBbox(b Bbox) Bbox {
	latSpan := int64(b.NE.LatFix) - int64(b.SW.LatFix)
	if latSpan < 0 {
		latSpan += int64(1 << 25)
	}

	lngSpan := lngSpanFix(b)

	latGrow := latSpan / 10
	lngGrow := lngSpan / 10

	maxLat := int32((90.0) * latScale)
	minLat := -maxLat
	maxLng := int32((180.0) * lngScale)
	minLng := -maxLng

	swLat := clamp32(int64(b.SW.LatFix)-latGrow, int64(minLat), int64(maxLat))
	neLat := clamp32(int64(b.NE.LatFix)+latGrow, int64(minLat), int64(maxLat))

	swLng := wrapClampLng(int64(b.SW.LngFix)-lngGrow, minLng, maxLng)
	neLng := wrapClampLng(int64(b.NE.LngFix)+lngGrow, minLng, maxLng)

	return Bbox{
		SW: Point{LatFix: int32(swLat), LngFix: swLng},
		NE: Point{LatFix: int32(neLat), LngFix: neLng},
	}
}

func lngSpanFix(b Bbox) int64 {
	if b.IsWrapAround() {
		full := int64(1 << 24)
		return full - (int64(b.SW.LngFix) - int64(b.NE.LngFix))
	}

	return int64(b.NE.LngFix) - int64(b.SW.LngFix)
}

func clamp32(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// wrapClampLng clamps a grown longitude bound to the legal range
// without collapsing a wrap-around sign; values that would exceed the
// legal range wrap to the opposite edge, same as longitude arithmetic
// on a circle.
func wrapClampLng(v int64, minLng, maxLng int32) int32 {
	span := int64(maxLng) - int64(minLng)

	for v > int64(maxLng) {
		v -= span
	}

	for v < int64(minLng) {
		v += span
	}

	return int32(v)
}
