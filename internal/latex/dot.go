package latex

import (
	"strconv"

	"github.com/emicklei/dot"
)

// Dot draws the symbol map as a Graphviz graph. Each node is labelled with
// its operator and symbol; scenario nodes are boxes and weightable nodes
// get a double border. Edges follow the recorded inputs.
func Dot(res *Result) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")

	inScenario := make(map[int]bool, len(res.Scenario))
	for _, id := range res.Scenario {
		inScenario[id] = true
	}

	nodes := make([]dot.Node, len(res.SymbolMap))
	for i, rec := range res.SymbolMap {
		label := rec.OpName
		if rec.Symbol != "" {
			label += "\n" + rec.Symbol
		}
		n := g.Node(strconv.Itoa(i)).Label(label)
		if inScenario[i] {
			n = n.Box()
		}
		if rec.Kind.Weightable() {
			n = n.Attr("peripheries", "2")
		}
		nodes[i] = n
	}

	for i, rec := range res.SymbolMap {
		for _, in := range rec.Inputs {
			if in >= 0 && in < len(nodes) {
				g.Edge(nodes[in], nodes[i])
			}
		}
	}
	return g
}
