// Package orgchart transforms the role accountability forest into a node
// and edge set with resolved tree-layout coordinates, ready for a drawing
// surface to render. Layout is a pure function of the input forest.
package orgchart

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/orgpulse/scorecard/pkg/hierarchy"
)

// Fixed node dimensions and separation constants for the layered layout.
const (
	NodeWidth  = 180.0
	NodeHeight = 80.0
	HSep       = 40.0
	VSep       = 60.0
)

// Node is a positioned chart node. X and Y are the absolute top-left
// corner of the node box.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Edge connects a role to the role it is accountable to.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Flow is the complete chart payload.
type Flow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// FlowData builds one node per role and one edge per role with a resolvable
// accountable-to reference, then runs a layered tree layout: rank equals
// depth, top to bottom, siblings left to right in display order. Dangling
// parent references are skipped; cycle members that no root can reach are
// adopted as extra roots so every role is still placed. The result is
// deterministic for a given forest.
func FlowData(roles []hierarchy.Role) Flow {
	ordered := make([]hierarchy.Role, len(roles))
	copy(ordered, roles)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].DisplayOrder != ordered[j].DisplayOrder {
			return ordered[i].DisplayOrder < ordered[j].DisplayOrder
		}
		return ordered[i].Name < ordered[j].Name
	})

	byID := make(map[string]hierarchy.Role, len(ordered))
	for _, r := range ordered {
		byID[r.ID] = r
	}

	children := make(map[string][]string, len(ordered))
	var roots []string
	var edges []Edge
	for _, r := range ordered {
		if r.AccountableToID == nil {
			roots = append(roots, r.ID)
			continue
		}
		parent, ok := byID[*r.AccountableToID]
		if !ok {
			// Dangling reference: treat as a root, emit no edge.
			roots = append(roots, r.ID)
			continue
		}
		children[parent.ID] = append(children[parent.ID], r.ID)
		edges = append(edges, Edge{
			ID:     fmt.Sprintf("%s->%s", r.ID, parent.ID),
			Source: r.ID,
			Target: parent.ID,
		})
	}

	placed := mapset.NewThreadUnsafeSet[string]()
	centers := make(map[string][2]float64, len(ordered))
	var cursor float64

	// place positions the subtree under id and returns its center x.
	var place func(id string, depth int) float64
	place = func(id string, depth int) float64 {
		y := float64(depth) * (NodeHeight + VSep)

		var childCenters []float64
		for _, childID := range children[id] {
			if !placed.Add(childID) {
				continue
			}
			childCenters = append(childCenters, place(childID, depth+1))
		}

		var cx float64
		if len(childCenters) == 0 {
			cx = cursor + NodeWidth/2
			cursor += NodeWidth + HSep
		} else {
			// Center the parent over its children.
			cx = (childCenters[0] + childCenters[len(childCenters)-1]) / 2
		}
		centers[id] = [2]float64{cx, y + NodeHeight/2}
		return cx
	}

	for _, rootID := range roots {
		if placed.Add(rootID) {
			place(rootID, 0)
		}
	}
	// Anything still unplaced sits on a cycle no root reaches. Adopt the
	// first unplaced member (input order, already sorted) as a root and
	// keep going until the forest is exhausted.
	for _, r := range ordered {
		if placed.Add(r.ID) {
			place(r.ID, 0)
		}
	}

	nodes := make([]Node, 0, len(ordered))
	for _, r := range ordered {
		c := centers[r.ID]
		nodes = append(nodes, Node{
			ID:    r.ID,
			Label: r.Name,
			// The layout works in center coordinates; shift to top-left.
			X:      c[0] - NodeWidth/2,
			Y:      c[1] - NodeHeight/2,
			Width:  NodeWidth,
			Height: NodeHeight,
		})
	}

	return Flow{Nodes: nodes, Edges: edges}
}
