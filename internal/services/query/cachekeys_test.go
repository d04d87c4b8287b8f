package query

import "testing"

func TestPlaceCacheKeyIsPerUID(t *testing.T) {
	a := PlaceCacheKey("place-1")
	b := PlaceCacheKey("place-2")

	if a == b {
		t.Fatalf("expected distinct keys for distinct uids, got %q for both", a)
	}

	if PlaceCacheKey("place-1") != a {
		t.Fatalf("expected PlaceCacheKey to be deterministic for the same uid")
	}
}

func TestRecentlyChangedCacheKeyDistinguishesNilBounds(t *testing.T) {
	since := int64(100)

	withSince := recentlyChangedCacheKey(&since, nil, 0, 20)
	withoutSince := recentlyChangedCacheKey(nil, nil, 0, 20)

	if withSince == withoutSince {
		t.Fatalf("expected distinct keys for nil vs set since bound")
	}
}
