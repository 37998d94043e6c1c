package dag

import (
	"errors"
	"reflect"
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	if i := g.AddNode("a", "node A"); i != 0 {
		t.Errorf("expected index 0, got %d", i)
	}
	g.AddNode("b", "node B")
	g.AddNode("c", "node C")

	if i, ok := g.Index("c"); !ok || i != 2 {
		t.Errorf("expected c at index 2, got %d (found %v)", i, ok)
	}

	// b depends on a
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	// c depends on b
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	// duplicate is ignored
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add duplicate edge: %v", err)
	}

	if got := g.GetChildren("b"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("expected duplicate edge to be ignored, got children %v", got)
	}
}

func TestGraph_AddNode_UpdatesData(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", 1)
	if i := g.AddNode("a", 2); i != 0 {
		t.Errorf("expected existing index 0, got %d", i)
	}
	n, _ := g.GetNode("a")
	if n.Data != 2 {
		t.Errorf("expected updated data, got %v", n.Data)
	}
	if _, ok := g.GetNode("missing"); ok {
		t.Error("expected missing node not to be found")
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	err := g.AddEdge("a", "a")
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError for self-loop, got %v", err)
	}
	if !reflect.DeepEqual(ce.Path, []string{"a", "a"}) {
		t.Errorf("unexpected cycle path %v", ce.Path)
	}
}

func TestGraph_GetChildren(t *testing.T) {
	g := NewGraph()
	g.AddNode("text", nil)
	g.AddNode("route", nil)
	g.AddNode("log", nil)

	// children keep insertion order, not id order
	_ = g.AddEdge("text", "route")
	_ = g.AddEdge("text", "log")

	if got := g.GetChildren("text"); !reflect.DeepEqual(got, []string{"route", "log"}) {
		t.Errorf("unexpected children %v", got)
	}
	if got := g.GetChildren("missing"); got != nil {
		t.Errorf("expected nil children for missing node, got %v", got)
	}
}

func TestGraph_PostOrder_ParentsInEdgeOrder(t *testing.T) {
	g := NewGraph()
	g.AddNode("path", nil)
	g.AddNode("value", nil)
	g.AddNode("route", nil)

	// dependencies are walked in edge insertion order, not id order
	_ = g.AddEdge("value", "route")
	_ = g.AddEdge("path", "route")

	var order []string
	_ = g.PostOrder([]string{"route"}, func(n *Node) error {
		order = append(order, n.ID)
		return nil
	})
	if want := []string{"value", "path", "route"}; !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestGraph_PostOrder(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"listen", "route", "text", "log"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("route", "listen")
	_ = g.AddEdge("text", "route")
	_ = g.AddEdge("text", "log")
	_ = g.AddEdge("log", "route")

	var order []string
	err := g.PostOrder([]string{"listen"}, func(n *Node) error {
		order = append(order, n.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"text", "log", "route", "listen"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestGraph_PostOrder_VisitsSharedNodeOnce(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"l1", "l2", "shared"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("shared", "l1")
	_ = g.AddEdge("shared", "l2")

	counts := map[string]int{}
	_ = g.PostOrder([]string{"l1", "l2"}, func(n *Node) error {
		counts[n.ID]++
		return nil
	})

	if counts["shared"] != 1 {
		t.Errorf("expected shared to be visited once, got %d", counts["shared"])
	}
}

func TestGraph_PostOrder_StopsOnVisitError(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	boom := errors.New("boom")

	err := g.PostOrder([]string{"a"}, func(*Node) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected visit error, got %v", err)
	}

	if err := g.PostOrder([]string{"zzz"}, func(*Node) error { return nil }); err == nil {
		t.Error("expected error for unknown root")
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)

	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")

	if hasCycle, _ := g.HasCycle(); hasCycle {
		t.Error("expected no cycle")
	}

	_ = g.AddEdge("c", "a")

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle")
	}
	if len(path) != 4 || path[0] != path[len(path)-1] {
		t.Errorf("expected closed cycle path of 4 ids, got %v", path)
	}
}

func TestGraph_PostOrder_TwoNodeCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	err := g.PostOrder([]string{"a"}, func(*Node) error { return nil })
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !reflect.DeepEqual(ce.Path, []string{"a", "b", "a"}) {
		t.Errorf("unexpected cycle path %v", ce.Path)
	}
	if ce.Error() != "cycle detected: a -> b -> a" {
		t.Errorf("unexpected message %q", ce.Error())
	}
}

func TestGraph_GetUpstreamNodes(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"listen", "route", "text", "orphan"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("route", "listen")
	_ = g.AddEdge("text", "route")

	if got := g.GetUpstreamNodes("listen"); !reflect.DeepEqual(got, []string{"listen", "route", "text"}) {
		t.Errorf("unexpected upstream %v", got)
	}
	if got := g.GetUpstreamNodes("missing"); got != nil {
		t.Errorf("expected no upstream for missing node, got %v", got)
	}
}
