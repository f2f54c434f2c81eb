package notify

// priorityMapping maps the internal 1-5 priority onto channel-specific
// fields. Pure lookup, no state.
type priorityMapping struct {
	Label string // subject/severity marker
	Push  string // push channel priority header value
	Tag   string // push channel tag
}

var priorityTable = map[int]priorityMapping{
	1: {Label: "LOW", Push: "min", Tag: "white_circle"},
	2: {Label: "NORMAL", Push: "low", Tag: "large_blue_circle"},
	3: {Label: "ELEVATED", Push: "default", Tag: "large_yellow_circle"},
	4: {Label: "HIGH", Push: "high", Tag: "large_orange_circle"},
	5: {Label: "CRITICAL", Push: "urgent", Tag: "red_circle"},
}

// mapPriority returns the mapping for a priority, clamping out-of-range
// values to the nearest defined level.
func mapPriority(priority int) priorityMapping {
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	return priorityTable[priority]
}
