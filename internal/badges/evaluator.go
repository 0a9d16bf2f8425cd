package badges

// Evaluate returns, in catalog order, the badges whose predicate holds and that
// are not already in current. It has no side effects, so repeated calls with the
// same input agree.
func Evaluate(counters Counters, current []string, signals Signals) []string {
	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}

	var unlocked []string
	for _, b := range catalog {
		if b.Administrative() {
			continue
		}
		if _, ok := have[b.ID]; ok {
			continue
		}
		if b.Unlock(counters, signals) {
			unlocked = append(unlocked, b.ID)
		}
	}
	return unlocked
}
