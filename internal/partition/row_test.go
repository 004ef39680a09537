package partition

import "testing"

func TestHashDimensionsDeterministic(t *testing.T) {
	row := MapRow{"host": "a", "region": "us"}
	h1 := HashDimensions([]string{"host", "region"}, row)
	h2 := HashDimensions([]string{"host", "region"}, row)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %d != %d", h1, h2)
	}
}

func TestHashDimensionsOrderSensitive(t *testing.T) {
	row := MapRow{"host": "a", "region": "us"}
	h1 := HashDimensions([]string{"host", "region"}, row)
	h2 := HashDimensions([]string{"region", "host"}, row)
	if h1 == h2 {
		t.Fatal("expected different dimension order to produce different hashes")
	}
}

func TestHashDimensionsLengthPrefixAvoidsCollision(t *testing.T) {
	a := MapRow{"x": "a", "y": "bc"}
	b := MapRow{"x": "ab", "y": "c"}
	ha := HashDimensions([]string{"x", "y"}, a)
	hb := HashDimensions([]string{"x", "y"}, b)
	if ha == hb {
		t.Fatal("expected length-prefixed hashing to distinguish (a,bc) from (ab,c)")
	}
}

func TestHashDimensionsAbsentTreatedAsEmpty(t *testing.T) {
	withEmpty := MapRow{"x": ""}
	absent := MapRow{}
	h1 := HashDimensions([]string{"x"}, withEmpty)
	h2 := HashDimensions([]string{"x"}, absent)
	if h1 != h2 {
		t.Fatal("expected an absent dimension to hash the same as an explicit empty value")
	}
}
