package analyze

import (
	"sort"
	"testing"

	"github.com/cmdouglas/adoreport/internal/model"
)

func edge(group, member string) model.GroupMembership {
	return model.GroupMembership{GroupDescriptor: group, MemberDescriptor: member}
}

func sortedClosure(g *MembershipGraph, start string) []string {
	closure := g.Closure(start)
	out := make([]string, 0, len(closure))
	for desc := range closure {
		out = append(out, desc)
	}
	sort.Strings(out)
	return out
}

func TestDirectGroups(t *testing.T) {
	t.Parallel()
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g1", "u1"),
		edge("g2", "u1"),
		edge("g1", "u2"),
	})

	got := g.DirectGroups("u1")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "g1" || got[1] != "g2" {
		t.Errorf("DirectGroups(u1) = %v, want [g1 g2]", got)
	}

	if got := g.DirectGroups("unknown"); got != nil {
		t.Errorf("DirectGroups(unknown) = %v, want nil", got)
	}
}

func TestClosure_TransitiveNesting(t *testing.T) {
	t.Parallel()
	// u1 -> g1 -> g2 -> g3
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g1", "u1"),
		edge("g2", "g1"),
		edge("g3", "g2"),
	})

	got := sortedClosure(g, "u1")
	want := []string{"g1", "g2", "g3"}
	if len(got) != len(want) {
		t.Fatalf("Closure(u1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Closure(u1) = %v, want %v", got, want)
		}
	}
}

func TestClosure_CycleTerminates(t *testing.T) {
	t.Parallel()
	// g1 and g2 contain each other; u1 is in g1.
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g1", "u1"),
		edge("g2", "g1"),
		edge("g1", "g2"),
	})

	got := sortedClosure(g, "u1")
	if len(got) != 2 || got[0] != "g1" || got[1] != "g2" {
		t.Errorf("Closure(u1) = %v, want [g1 g2]", got)
	}
}

func TestClosure_Repeatable(t *testing.T) {
	t.Parallel()
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g1", "u1"),
		edge("g2", "g1"),
		edge("g1", "g2"),
	})

	first := sortedClosure(g, "u1")
	second := sortedClosure(g, "u1")
	if len(first) != len(second) {
		t.Fatalf("closure sizes differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("closure changed between calls: %v vs %v", first, second)
		}
	}
}

func TestClosure_ExcludesStart(t *testing.T) {
	t.Parallel()
	// Self-referential group: g1 is a member of itself via g2.
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g2", "g1"),
		edge("g1", "g2"),
	})

	closure := g.Closure("g1")
	if _, ok := closure["g1"]; ok {
		t.Error("closure must not contain the start node")
	}
	if _, ok := closure["g2"]; !ok {
		t.Error("closure should contain g2")
	}
}

func TestClosure_DiamondVisitsOnce(t *testing.T) {
	t.Parallel()
	// u1 is in g1 and g2, both of which are in g3.
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g1", "u1"),
		edge("g2", "u1"),
		edge("g3", "g1"),
		edge("g3", "g2"),
	})

	got := sortedClosure(g, "u1")
	want := []string{"g1", "g2", "g3"}
	if len(got) != len(want) {
		t.Fatalf("Closure(u1) = %v, want %v", got, want)
	}
}

func TestClosure_NoEdges(t *testing.T) {
	t.Parallel()
	g := NewMembershipGraph(nil)
	if got := g.Closure("u1"); len(got) != 0 {
		t.Errorf("Closure(u1) = %v, want empty", got)
	}
}

func TestSetEdges_RebuildsLazily(t *testing.T) {
	t.Parallel()
	g := NewMembershipGraph(nil)
	g.SetEdges([]model.GroupMembership{edge("g1", "u1")})

	if got := g.DirectGroups("u1"); len(got) != 1 || got[0] != "g1" {
		t.Errorf("DirectGroups(u1) after SetEdges = %v, want [g1]", got)
	}
}

func TestGroupMembers(t *testing.T) {
	t.Parallel()
	g := NewMembershipGraph([]model.GroupMembership{
		edge("g1", "u1"),
		edge("g1", "u2"),
	})

	got := g.GroupMembers("g1")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("GroupMembers(g1) = %v, want [u1 u2]", got)
	}
}
