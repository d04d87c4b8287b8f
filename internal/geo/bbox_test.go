package geo_test

import (
	"testing"

	"placedir/internal/geo"

	"github.com/stretchr/testify/require"
)

func mustPoint(t *testing.T, lat, lng float64) geo.Point {
	t.Helper()

	p, err := geo.NewPointFromLatLng(lat, lng)
	require.NoError(t, err)

	return p
}

func TestContainsPointNonWrap(t *testing.T) {
	b := geo.Bbox{
		SW: mustPoint(t, 0, 0),
		NE: mustPoint(t, 10, 10),
	}

	require.True(t, b.ContainsPoint(mustPoint(t, 5, 5)))
	require.True(t, b.ContainsPoint(mustPoint(t, 0, 0)))
	require.True(t, b.ContainsPoint(mustPoint(t, 10, 10)))
	require.False(t, b.ContainsPoint(mustPoint(t, 11, 5)))
}

func TestContainsPointWrapAround(t *testing.T) {
	b := geo.Bbox{
		SW: mustPoint(t, 0, 170),
		NE: mustPoint(t, 10, -170),
	}
	require.True(t, b.IsWrapAround())

	require.True(t, b.ContainsPoint(mustPoint(t, 5, 175)))
	require.False(t, b.ContainsPoint(mustPoint(t, 5, 0)))
}

func TestNewPointFromLatLngRejectsOutOfRange(t *testing.T) {
	_, err := geo.NewPointFromLatLng(91, 0)
	require.Error(t, err)

	_, err = geo.NewPointFromLatLng(0, 181)
	require.Error(t, err)
}

func TestExtendBboxGrowsAndClips(t *testing.T) {
	b := geo.Bbox{
		SW: mustPoint(t, -85, 170),
		NE: mustPoint(t, 85, -170),
	}

	ext := geo.ExtendBbox(b)
	require.True(t, ext.IsWrapAround())
	require.LessOrEqual(t, ext.SW.LatFix, b.SW.LatFix)
	require.GreaterOrEqual(t, ext.NE.LatFix, b.NE.LatFix)
}

func TestExtendBboxWrapAroundGrowsLongitudeByExactly10PercentPerSide(t *testing.T) {
	b := geo.Bbox{
		SW: mustPoint(t, 0, 170),
		NE: mustPoint(t, 10, -170),
	}
	require.True(t, b.IsWrapAround())

	// Wrap span is 20 degrees (170 to 180, plus -180 to -170). Growing
	// each side by 10% of that span should add ~2 degrees per side, for
	// a ~24 degree total span - not the ~19x inflated span a wrong
	// full-circle constant would produce.
	ext := geo.ExtendBbox(b)
	require.True(t, ext.IsWrapAround())

	span := 360 - (ext.SW.Lng() - ext.NE.Lng())
	require.InDelta(t, 24.0, span, 0.1)
}
