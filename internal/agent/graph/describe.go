package graph

import (
	"github.com/cloudwego/eino/compose"

	"github.com/ax5-sect/server/internal/agent/graph/nodes"
)

// Edges lists the unconditional transitions of a turn.
func Edges() [][2]string {
	edges := [][2]string{
		{compose.START, nodes.NodeCoordinator},
	}
	for _, node := range nodes.SpecialistNodes() {
		edges = append(edges, [2]string{node, nodes.NodeQueuePrep})
	}
	return append(edges,
		[2]string{nodes.NodeSynthesizer, nodes.NodeDone},
		[2]string{nodes.NodeDone, compose.END},
	)
}

// Branches lists, per branching node, every node it may route to.
func Branches() map[string][]string {
	specialists := nodes.SpecialistNodes()

	afterCoordinator := append([]string{}, specialists...)
	afterCoordinator = append(afterCoordinator, nodes.NodeSynthesizer, nodes.NodeDone)

	afterQueuePrep := append([]string{}, specialists...)
	afterQueuePrep = append(afterQueuePrep, nodes.NodeSynthesizer)

	return map[string][]string{
		nodes.NodeCoordinator: afterCoordinator,
		nodes.NodeQueuePrep:   afterQueuePrep,
	}
}

// Description is the static shape of the orchestration graph.
type Description struct {
	Nodes    []string            `json:"nodes"`
	Edges    [][2]string         `json:"edges"`
	Branches map[string][]string `json:"branches"`
}

// Describe returns the graph shape for diagnostics.
func Describe() Description {
	names := []string{nodes.NodeCoordinator}
	names = append(names, nodes.SpecialistNodes()...)
	names = append(names, nodes.NodeQueuePrep, nodes.NodeSynthesizer, nodes.NodeDone)
	return Description{
		Nodes:    names,
		Edges:    Edges(),
		Branches: Branches(),
	}
}
