// Package analyze cross-references users, groups, entitlements and
// membership edges into per-user summaries and the organization report.
package analyze

import "github.com/cmdouglas/adoreport/internal/model"

// MembershipGraph indexes membership edges for closure queries. Membership
// is a directed graph: a member may itself be a group, so walks must be
// cycle-safe.
type MembershipGraph struct {
	edges []model.GroupMembership

	// group descriptor -> member descriptors
	groupMembers map[string][]string
	// member descriptor -> containing group descriptors
	memberGroups map[string][]string
}

// NewMembershipGraph builds a graph over the given edges.
func NewMembershipGraph(edges []model.GroupMembership) *MembershipGraph {
	g := &MembershipGraph{edges: edges}
	g.Rebuild()
	return g
}

// SetEdges replaces the edge list without rebuilding the adjacency maps.
// Closure and DirectGroups rebuild lazily when they find the maps empty,
// so graphs populated out of band still resolve.
func (g *MembershipGraph) SetEdges(edges []model.GroupMembership) {
	g.edges = edges
	g.groupMembers = nil
	g.memberGroups = nil
}

// Rebuild recomputes both adjacency maps from the edge list. It is
// idempotent and safe to call any number of times.
func (g *MembershipGraph) Rebuild() {
	g.groupMembers = make(map[string][]string)
	g.memberGroups = make(map[string][]string)

	for _, m := range g.edges {
		g.groupMembers[m.GroupDescriptor] = append(g.groupMembers[m.GroupDescriptor], m.MemberDescriptor)
		g.memberGroups[m.MemberDescriptor] = append(g.memberGroups[m.MemberDescriptor], m.GroupDescriptor)
	}
}

func (g *MembershipGraph) ensureBuilt() {
	if g.memberGroups == nil || (len(g.memberGroups) == 0 && len(g.edges) > 0) {
		g.Rebuild()
	}
}

// DirectGroups returns the descriptors of groups the given member belongs
// to directly. The result is nil for members with no edges.
func (g *MembershipGraph) DirectGroups(member string) []string {
	g.ensureBuilt()
	return g.memberGroups[member]
}

// GroupMembers returns the direct member descriptors of the given group.
func (g *MembershipGraph) GroupMembers(group string) []string {
	g.ensureBuilt()
	return g.groupMembers[group]
}

// Closure returns every group reachable from start by following
// member-to-group edges transitively, excluding start itself. The walk is
// an explicit stack with a visited set shared across branches, so cyclic
// and diamond-shaped graphs terminate without re-expanding nodes, and
// arbitrarily deep nesting cannot exhaust the call stack.
func (g *MembershipGraph) Closure(start string) map[string]struct{} {
	g.ensureBuilt()

	reachable := make(map[string]struct{})
	visited := map[string]struct{}{start: {}}
	stack := append([]string(nil), g.memberGroups[start]...)

	for len(stack) > 0 {
		desc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[desc]; seen {
			continue
		}
		visited[desc] = struct{}{}
		reachable[desc] = struct{}{}

		stack = append(stack, g.memberGroups[desc]...)
	}

	return reachable
}
