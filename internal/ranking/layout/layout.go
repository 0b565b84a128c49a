// Package layout places ranked users on a 2D plane and derives bubble presentation hints.
package layout

import (
	"math"
	"sort"

	"github.com/kailas-cloud/thepool/internal/domain/pool"
)

// GoldenAngle is π·(3−√5) radians, about 137.5°.
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// Defaults for one group canvas.
const (
	DefaultGroupSize  = 280.0
	DefaultCenterX    = DefaultGroupSize / 2
	DefaultCenterY    = DefaultGroupSize / 2
	DefaultRadius     = 100.0
	DefaultGroupCount = 4
)

// Layout returns a copy of users sorted by Score descending (stable) and placed on a
// golden-angle spiral around (cx, cy). The first user sits exactly at the centre; user i
// lies at distance √(i/n)·maxRadius. The input slice is not modified.
func Layout(users []pool.User, cx, cy, maxRadius float64) []pool.User {
	if len(users) == 0 {
		return []pool.User{}
	}

	out := sortedCopy(users)
	n := float64(len(out))

	for i := range out {
		if i == 0 {
			out[i].Position = pool.Position{X: cx, Y: cy}
			continue
		}
		angle := float64(i) * GoldenAngle
		dist := math.Sqrt(float64(i)/n) * maxRadius
		out[i].Position = pool.Position{
			X: cx + math.Cos(angle)*dist,
			Y: cy + math.Sin(angle)*dist,
		}
	}
	return out
}

// DistributeInGroups sorts users by Score descending and deals them round-robin into
// groupCount groups, so each group starts with one of the highest-ranked users.
// Returns nil for an empty input or a non-positive groupCount.
func DistributeInGroups(users []pool.User, groupCount int) [][]pool.User {
	if len(users) == 0 || groupCount <= 0 {
		return nil
	}

	sorted := sortedCopy(users)
	groups := make([][]pool.User, groupCount)
	for i := range sorted {
		g := i % groupCount
		groups[g] = append(groups[g], sorted[i])
	}
	return groups
}

// Decorate sets Size and Color on every user from its Score.
func Decorate(users []pool.User) {
	for i := range users {
		users[i].Size = BubbleSize(users[i].Score)
		users[i].Color = BubbleColor(users[i].Score).Hex()
	}
}

func sortedCopy(users []pool.User) []pool.User {
	out := make([]pool.User, len(users))
	copy(out, users)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
