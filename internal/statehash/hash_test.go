package statehash

import "testing"

func TestFoldIsOrderIndependent(t *testing.T) {
	a, b, c := Digest("x"), Digest("y"), Digest("z")
	if Fold(a, b, c) != Fold(c, b, a) {
		t.Fatalf("fold must not depend on argument order")
	}
}

func TestDigestDeterministic(t *testing.T) {
	if Digest(42) != Digest(42) {
		t.Fatalf("same input must produce same digest")
	}
	if Digest(42) == Digest(43) {
		t.Fatalf("different inputs should (almost always) produce different digests")
	}
}

func TestFoldEmptyIsZero(t *testing.T) {
	if Fold() != 0 {
		t.Fatalf("fold of nothing must be the identity, 0")
	}
}
