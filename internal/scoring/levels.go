// Package scoring derives a user's points and level from the completion
// ledger.
package scoring

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultThresholds are the minimum points for levels 1 through 6.
var DefaultThresholds = []int{0, 100, 250, 500, 750, 1000}

// Levels is an ascending threshold table. Level L (1-based) is reached at
// Levels[L-1] points.
type Levels []int

// NewLevels validates thresholds: at least one, starting at 0 and
// strictly ascending.
func NewLevels(thresholds []int) (Levels, error) {
	if len(thresholds) == 0 || thresholds[0] != 0 {
		return nil, errors.New("level thresholds must start at 0")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return nil, fmt.Errorf("level threshold %d is not above %d", thresholds[i], thresholds[i-1])
		}
	}
	return append(Levels(nil), thresholds...), nil
}

// LevelFor returns the largest level whose threshold is met or exceeded.
func (l Levels) LevelFor(points int) int {
	// First index whose threshold exceeds points.
	i := sort.Search(len(l), func(i int) bool { return l[i] > points })
	if i == 0 {
		return 1
	}
	return i
}

// NextThreshold returns the points needed for the level after the one
// points falls in. ok is false at the top level.
func (l Levels) NextThreshold(points int) (next int, ok bool) {
	level := l.LevelFor(points)
	if level >= len(l) {
		return 0, false
	}
	return l[level], true
}

func (l Levels) Max() int { return len(l) }
