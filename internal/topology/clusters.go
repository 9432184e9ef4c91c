package topology

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// Intn is the random source used to break ties between equal ramps.
// *rand.Rand satisfies it.
type Intn interface {
	Intn(n int) int
}

// Cluster is a maximal group of mutually adjacent ramps.
type Cluster struct {
	Members []*layout.Room // Sorted by origin
	Kept    *layout.Room   // The member that stays a ramp
}

// ResolveClusters collapses every group of two or more adjacent ramps into a
// single ramp. When all members share one size, the middle member is kept for
// an odd count and a random member for an even count; otherwise the member
// with the longest side wins, earliest origin first. The rest revert to normal
// rooms. Only clusters of two or more are returned.
func ResolveClusters(g *Graph, rng Intn) []Cluster {
	processed := mapset.New[*layout.Room]()
	var clusters []Cluster

	seeds := make([]*layout.Room, 0)
	for _, r := range g.rooms {
		if r.IsRamp() {
			seeds = append(seeds, r)
		}
	}
	layout.SortRooms(seeds)

	for _, seed := range seeds {
		if processed.Has(seed) {
			continue
		}

		members := g.rampCluster(seed, processed)
		if len(members) < 2 {
			continue
		}
		layout.SortRooms(members)

		kept := pickRepresentative(members, rng)
		for _, m := range members {
			if m != kept {
				m.Kind = layout.Normal
			}
		}
		clusters = append(clusters, Cluster{Members: members, Kept: kept})
	}

	return clusters
}

// rampCluster collects the ramps reachable from seed through ramp-to-ramp
// edges, marking each as processed.
func (g *Graph) rampCluster(seed *layout.Room, processed mapset.Set[*layout.Room]) []*layout.Room {
	processed.Put(seed)
	members := []*layout.Room{seed}
	queue := []*layout.Room{seed}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, n := range g.Neighbors(current) {
			if !n.Room.IsRamp() || processed.Has(n.Room) {
				continue
			}
			processed.Put(n.Room)
			members = append(members, n.Room)
			queue = append(queue, n.Room)
		}
	}
	return members
}

func pickRepresentative(members []*layout.Room, rng Intn) *layout.Room {
	uniform := true
	for _, m := range members[1:] {
		if m.W != members[0].W || m.H != members[0].H {
			uniform = false
			break
		}
	}

	if uniform {
		if len(members)%2 == 1 {
			return members[len(members)/2]
		}
		return members[rng.Intn(len(members))]
	}

	best := members[0]
	for _, m := range members[1:] {
		if m.LongSide() > best.LongSide() {
			best = m
		}
	}
	return best
}
