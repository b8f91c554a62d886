package anonymize

import (
	"strings"
	"time"
)

// geoMod folds arbitrarily long digit strings into a stable numeric range.
const geoMod = 10_000_000_000 // 10^10

// digitString returns the ASCII digit characters of s in order.
func digitString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// encodeSection maps a section id to its geo feature: the id's digit
// characters read as one integer, modulo 10^10. The modulus is folded
// through the scan so ids of any length stay in range. Ids with no digits
// encode to 0.
func encodeSection(id string) float64 {
	var v uint64
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < '0' || c > '9' {
			continue
		}
		v = (v*10 + uint64(c-'0')) % geoMod
	}
	return float64(v)
}

// encodeTime maps an exit time to a fractional hour of day in [0, 24).
// A missing timestamp encodes to 0.
func encodeTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

// featureVectors encodes records into (geo, time) points for clustering.
// Encoding never fails; malformed identifiers degrade to 0.
func featureVectors(records []Record) [][]float64 {
	points := make([][]float64, len(records))
	for i, r := range records {
		points[i] = []float64{encodeSection(r.SectionID), encodeTime(r.ExitTime)}
	}
	return points
}
