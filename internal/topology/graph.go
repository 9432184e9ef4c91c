package topology

import (
	"sort"

	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// Graph is the room adjacency graph of one dungeon. Edges are computed once
// on construction; the room set must not change while the graph is in use.
type Graph struct {
	rooms []*layout.Room
	index map[*layout.Room]int
	adj   [][]Neighbor
}

// NewGraph builds the adjacency graph over rooms.
func NewGraph(rooms []*layout.Room) *Graph {
	g := &Graph{
		rooms: rooms,
		index: make(map[*layout.Room]int, len(rooms)),
		adj:   make([][]Neighbor, len(rooms)),
	}
	for i, r := range rooms {
		g.index[r] = i
	}

	for i, a := range rooms {
		for j := i + 1; j < len(rooms); j++ {
			b := rooms[j]
			dir := AdjacencyDirection(a, b)
			if dir == layout.NoDirection {
				continue
			}
			g.adj[i] = append(g.adj[i], Neighbor{Room: b, Dir: dir})
			g.adj[j] = append(g.adj[j], Neighbor{Room: a, Dir: dir.Opposite()})
		}
	}

	for _, list := range g.adj {
		sortNeighbors(list)
	}
	return g
}

// sortNeighbors orders neighbors North, East, South, West, then by origin.
func sortNeighbors(list []Neighbor) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Dir != list[j].Dir {
			return list[i].Dir < list[j].Dir
		}
		if list[i].Room.X != list[j].Room.X {
			return list[i].Room.X < list[j].Room.X
		}
		return list[i].Room.Y < list[j].Room.Y
	})
}

// Rooms returns the rooms the graph was built over.
func (g *Graph) Rooms() []*layout.Room {
	return g.rooms
}

// Neighbors returns the rooms adjacent to r in direction order.
// The returned slice must not be modified.
func (g *Graph) Neighbors(r *layout.Room) []Neighbor {
	i, ok := g.index[r]
	if !ok {
		return nil
	}
	return g.adj[i]
}

// Components returns the connected components of the graph.
func (g *Graph) Components() [][]*layout.Room {
	return g.components(nil)
}

// ComponentsWithout returns the connected components of the graph with
// removed taken out, as if it had never been part of the layout.
func (g *Graph) ComponentsWithout(removed *layout.Room) [][]*layout.Room {
	return g.components(removed)
}

// components floods from every unvisited room. Each component is sorted by
// origin and components are ordered by their first room, so the result does
// not depend on traversal order.
func (g *Graph) components(removed *layout.Room) [][]*layout.Room {
	visited := mapset.New[*layout.Room]()
	if removed != nil {
		visited.Put(removed)
	}

	var components [][]*layout.Room
	for _, start := range g.rooms {
		if visited.Has(start) {
			continue
		}

		var component []*layout.Room
		stack := []*layout.Room{start}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited.Has(current) {
				continue
			}
			visited.Put(current)
			component = append(component, current)

			for _, n := range g.Neighbors(current) {
				if !visited.Has(n.Room) {
					stack = append(stack, n.Room)
				}
			}
		}

		layout.SortRooms(component)
		components = append(components, component)
	}

	sort.Slice(components, func(i, j int) bool {
		a, b := components[i][0], components[j][0]
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return components
}

// Connected reports whether every room is reachable from every other.
func (g *Graph) Connected() bool {
	return len(g.Components()) <= 1
}
