package roaming

import (
	"testing"
	"time"
)

func TestProductSpecEncode(t *testing.T) {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		spec ProductSpec
		want string
	}{
		{"empty", ProductSpec{}, ""},
		{"product only", ProductSpec{ProductID: "AC3"}, "P=AC3"},
		{
			"whole minutes",
			ProductSpec{Duration: 90 * time.Minute},
			"D=90min",
		},
		{
			"sub-minute seconds",
			ProductSpec{Duration: 90 * time.Second},
			"D=90sec",
		},
		{
			"all fields",
			ProductSpec{
				ProductID:     "AC3",
				StartTime:     &start,
				Duration:      15 * time.Minute,
				ReservationID: "DE*GEF*Rabc123",
			},
			"P=AC3|S=2024-05-10T12:00:00Z|D=15min|R=DE*GEF*Rabc123",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.spec.Encode(); got != tc.want {
				t.Errorf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProductSpecRoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	spec := ProductSpec{
		ProductID:     "AC3",
		StartTime:     &start,
		Duration:      90 * time.Second,
		ReservationID: "DE*GEF*Rabc123",
	}

	decoded, err := DecodeProductSpec(spec.Encode())
	if err != nil {
		t.Fatalf("DecodeProductSpec: %v", err)
	}
	if decoded.ProductID != spec.ProductID {
		t.Errorf("product id = %q", decoded.ProductID)
	}
	if decoded.StartTime == nil || !decoded.StartTime.Equal(start) {
		t.Errorf("start time = %v, want %v", decoded.StartTime, start)
	}
	if decoded.Duration != spec.Duration {
		t.Errorf("duration = %v, want %v", decoded.Duration, spec.Duration)
	}
	if decoded.ReservationID != spec.ReservationID {
		t.Errorf("reservation id = %q", decoded.ReservationID)
	}
}

func TestDecodeProductSpecIgnoresUnknownKeys(t *testing.T) {
	spec, err := DecodeProductSpec("P=AC3|X=future|D=5min")
	if err != nil {
		t.Fatalf("DecodeProductSpec: %v", err)
	}
	if spec.ProductID != "AC3" || spec.Duration != 5*time.Minute {
		t.Errorf("spec = %+v", spec)
	}
}

func TestDecodeProductSpecMalformed(t *testing.T) {
	for _, in := range []string{"nonsense", "D=5h", "S=yesterday"} {
		if _, err := DecodeProductSpec(in); err == nil {
			t.Errorf("DecodeProductSpec(%q) accepted malformed input", in)
		}
	}
}
