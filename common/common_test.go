package common

import "testing"

func TestWrap(t *testing.T) {
	tests := []struct {
		v, period, want float32
	}{
		{0.5, 1, 0.5},
		{1, 1, 0},
		{2.25, 1, 0.25},
		{-0.25, 1, 0.75},
		{3, 0, 0},
		{3, -1, 0},
	}
	for _, tt := range tests {
		if have := Wrap(tt.v, tt.period); have != tt.want {
			t.Errorf("Wrap(%v, %v):\nhave %v\nwant %v", tt.v, tt.period, have, tt.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	if have := Clamp01(-2); have != 0 {
		t.Errorf("Clamp01(-2):\nhave %v\nwant 0", have)
	}
	if have := Clamp01(1.5); have != 1 {
		t.Errorf("Clamp01(1.5):\nhave %v\nwant 1", have)
	}
	if have := Coalesce("", "b", "c"); have != "b" {
		t.Errorf("Coalesce:\nhave %q\nwant b", have)
	}
	v := float32(2)
	if have := Deref(&v, 1); have != 2 {
		t.Errorf("Deref(&2, 1):\nhave %v\nwant 2", have)
	}
	if have := Deref[float32](nil, 1); have != 1 {
		t.Errorf("Deref(nil, 1):\nhave %v\nwant 1", have)
	}
	if have := len(SliceToBytes([]uint32{1, 2})); have != 8 {
		t.Errorf("len(SliceToBytes):\nhave %d\nwant 8", have)
	}
}
