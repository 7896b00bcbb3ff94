package roaming

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProductSpec is the structured content of the hub's partner-product-id
// field. The hub treats the field as an opaque string; partners pack
// KEY=value pairs joined with "|". The key set and formatting below are an
// external protocol convention and must match the wire format exactly.
type ProductSpec struct {
	ProductID     string
	StartTime     *time.Time
	Duration      time.Duration
	ReservationID string
}

// Encode packs the present fields. Durations render as "<n>min" when they
// are whole minutes, "<n>sec" otherwise.
func (p ProductSpec) Encode() string {
	var parts []string
	if p.ProductID != "" {
		parts = append(parts, "P="+p.ProductID)
	}
	if p.StartTime != nil {
		parts = append(parts, "S="+p.StartTime.Format(time.RFC3339))
	}
	if p.Duration > 0 {
		if p.Duration%time.Minute == 0 {
			parts = append(parts, fmt.Sprintf("D=%dmin", int64(p.Duration/time.Minute)))
		} else {
			parts = append(parts, fmt.Sprintf("D=%dsec", int64(p.Duration/time.Second)))
		}
	}
	if p.ReservationID != "" {
		parts = append(parts, "R="+p.ReservationID)
	}
	return strings.Join(parts, "|")
}

// DecodeProductSpec parses a packed partner-product-id. Unknown keys are
// ignored for forward compatibility.
func DecodeProductSpec(s string) (ProductSpec, error) {
	var spec ProductSpec
	if s == "" {
		return spec, nil
	}
	for _, part := range strings.Split(s, "|") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return ProductSpec{}, fmt.Errorf("malformed partner product segment %q", part)
		}
		switch key {
		case "P":
			spec.ProductID = value
		case "S":
			ts, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return ProductSpec{}, fmt.Errorf("malformed start time %q: %w", value, err)
			}
			spec.StartTime = &ts
		case "D":
			d, err := parseDuration(value)
			if err != nil {
				return ProductSpec{}, err
			}
			spec.Duration = d
		case "R":
			spec.ReservationID = value
		}
	}
	return spec, nil
}

func parseDuration(value string) (time.Duration, error) {
	switch {
	case strings.HasSuffix(value, "min"):
		n, err := strconv.ParseInt(strings.TrimSuffix(value, "min"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed duration %q: %w", value, err)
		}
		return time.Duration(n) * time.Minute, nil
	case strings.HasSuffix(value, "sec"):
		n, err := strconv.ParseInt(strings.TrimSuffix(value, "sec"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed duration %q: %w", value, err)
		}
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("malformed duration %q", value)
	}
}
