package app

import "time"

// Score awards points for an answer: nothing when incorrect, otherwise
// maxPoints decaying linearly from full credit at elapsed=0 to zero at
// elapsed=timeLimit. A non-positive limit means the question is untimed.
func Score(correct bool, maxPoints int, timeLimit, elapsed time.Duration) int {
	if !correct || maxPoints <= 0 {
		return 0
	}
	limit := timeLimit.Milliseconds()
	if limit <= 0 {
		return maxPoints
	}
	spent := elapsed.Milliseconds()
	if spent < 0 {
		spent = 0
	}
	remaining := limit - spent
	if remaining <= 0 {
		return 0
	}
	return int(int64(maxPoints) * remaining / limit)
}

// IsCorrectSelection reports whether the selected answers are exactly the
// correct set. There is no partial credit and an empty selection never wins.
func IsCorrectSelection(selected, correct []string) bool {
	if len(selected) == 0 || len(selected) != len(correct) {
		return false
	}
	want := make(map[string]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}
	for _, id := range selected {
		if _, ok := want[id]; !ok {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}
