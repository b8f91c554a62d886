package anonymize

import "fmt"

const (
	unknownRegion = "unknown-region"
	unknownPeriod = "unknown-period"
)

// generalizeRegion derives one geographic label for a cluster from its
// members' original section ids. Each member contributes the first three
// digits of its id's digit extraction; ids with fewer than three digits
// contribute nothing. A single shared prefix yields "<prefix>-region";
// mixed prefixes yield "<majority>-etc-region" with ties broken by first
// appearance. A cluster with no contributing members yields unknownRegion.
func generalizeRegion(members []Record) string {
	counts := make(map[string]int)
	var order []string
	for _, m := range members {
		digits := digitString(m.SectionID)
		if len(digits) < 3 {
			continue
		}
		prefix := digits[:3]
		if counts[prefix] == 0 {
			order = append(order, prefix)
		}
		counts[prefix]++
	}

	if len(order) == 0 {
		return unknownRegion
	}

	majority := order[0]
	for _, prefix := range order[1:] {
		if counts[prefix] > counts[majority] {
			majority = prefix
		}
	}

	if len(order) == 1 {
		return majority + "-region"
	}
	return majority + "-etc-region"
}

// generalizeTimePeriod derives one temporal label from the members'
// original exit times. Clusters spanning at most six hours map to a
// time-of-day bucket chosen by the earliest hour; wider spans fall back to
// the literal hour range. Members without a timestamp are skipped; a
// cluster with none yields unknownPeriod.
func generalizeTimePeriod(members []Record) string {
	minHour, maxHour := -1, -1
	for _, m := range members {
		if m.ExitTime.IsZero() {
			continue
		}
		h := m.ExitTime.Hour()
		if minHour == -1 || h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}
	}

	if minHour == -1 {
		return unknownPeriod
	}

	if maxHour-minHour > 6 {
		return fmt.Sprintf("(%02d-%02d)", minHour, maxHour)
	}

	switch {
	case minHour < 6:
		return "dawn"
	case minHour < 12:
		return "morning"
	case minHour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
