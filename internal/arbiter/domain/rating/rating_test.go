package rating

import "testing"

func TestSaturatingSub(t *testing.T) {
	cases := []struct {
		name  string
		value int64
		delta int64
		want  int64
	}{
		{name: "normal subtraction", value: 100, delta: 25, want: 75},
		{name: "exact zero", value: 25, delta: 25, want: 0},
		{name: "floors at zero", value: 10, delta: 25, want: 0},
		{name: "zero delta", value: 42, delta: 0, want: 42},
		{name: "zero value", value: 0, delta: 7, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SaturatingSub(tc.value, tc.delta); got != tc.want {
				t.Fatalf("SaturatingSub(%d, %d) = %d, want %d", tc.value, tc.delta, got, tc.want)
			}
		})
	}
}
