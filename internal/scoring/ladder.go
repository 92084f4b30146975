package scoring

import "strings"

// seniorityLadder maps a free-text title fragment to an integer rung
// used to measure career trajectory (spec.md §4.6). Every fragment
// contained in a title is considered and the highest rung among them
// wins, so "senior staff" ranks as staff.
var seniorityLadder = []struct {
	fragment string
	rung     int
}{
	{"intern", 0},
	{"junior", 1},
	{"associate", 1},
	{"engineer i", 1},
	{"engineer ii", 2},
	{"engineer iii", 3},
	{"senior", 3},
	{"staff", 4},
	{"principal", 5},
	{"lead", 4},
	{"manager", 4},
	{"director", 6},
	{"vp", 7},
	{"vice president", 7},
	{"chief", 8},
	{"head of", 6},
	{"founder", 7},
	{"co-founder", 7},
}

// ladderRung returns the highest-matching rung found in title, or a
// neutral mid rung (2) when no known fragment is present.
func ladderRung(title string) int {
	t := strings.ToLower(title)
	best := -1
	for _, entry := range seniorityLadder {
		if strings.Contains(t, entry.fragment) && entry.rung > best {
			best = entry.rung
		}
	}
	if best < 0 {
		return 2
	}
	return best
}
