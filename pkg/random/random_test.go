package random

import "testing"

func TestStreamDeterministic(t *testing.T) {
	a := NewStream(42)
	b := NewStream(42)
	for i := 0; i < 1000; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
	}
	if a.Draws() != 1000 {
		t.Errorf("Draws() = %d, want 1000", a.Draws())
	}
}

func TestStreamSeedsDiffer(t *testing.T) {
	a := NewStream(1)
	b := NewStream(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 100 {
		t.Error("different seeds produced identical sequences")
	}
}

func TestRange(t *testing.T) {
	s := NewStream(7)
	for i := 0; i < 1000; i++ {
		v := s.Range(-5, 5)
		if v < -5 || v >= 5 {
			t.Fatalf("Range(-5, 5) = %v, out of bounds", v)
		}
	}
	for i := 0; i < 100; i++ {
		v := s.Range(10, 2)
		if v < 2 || v >= 10 {
			t.Fatalf("Range(10, 2) = %v, out of bounds", v)
		}
	}
}

func TestIntn(t *testing.T) {
	s := NewStream(3)
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		v := s.Intn(4)
		if v < 0 || v >= 4 {
			t.Fatalf("Intn(4) = %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("Intn(4) hit %d distinct values, want 4", len(seen))
	}

	before := s.Draws()
	if got := s.Intn(0); got != 0 {
		t.Errorf("Intn(0) = %d, want 0", got)
	}
	if s.Draws() != before {
		t.Error("Intn(0) should not draw")
	}
}

func TestDeviceSeedNonZero(t *testing.T) {
	if DeviceSeed() == 0 {
		t.Error("DeviceSeed() = 0")
	}
}
