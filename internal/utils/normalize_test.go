package utils

import "testing"

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc 123", "ABC123"},
		{"AB-12 cd", "AB12CD"},
		{"  a1!@#b2  ", "A1B2"},
		{"", ""},
		{"---", ""},
		{"ABC123", "ABC123"},
	}
	for _, c := range cases {
		if got := NormalizePlate(c.in); got != c.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizePlateIdempotent(t *testing.T) {
	inputs := []string{"ab-12", "XYZ 999", "a b c"}
	for _, in := range inputs {
		once := NormalizePlate(in)
		if twice := NormalizePlate(once); twice != once {
			t.Errorf("NormalizePlate not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
