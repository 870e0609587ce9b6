package models

import "fmt"

// CompiledNode is a graph node with its config parsed into the typed union.
// Exactly one of the config pointers matching Kind is non-nil (trigger nodes
// carry their configuration on the workflow, not the node).
type CompiledNode struct {
	ID        string
	Kind      NodeKind
	Action    *ActionConfig
	Condition *ConditionConfig
	Delay     *DelayConfig
}

// CompiledGraph is the executable form of a validated graph: typed nodes
// plus adjacency resolved into direct successor lookups. The engine walks
// this structure and never inspects untyped maps at run time.
type CompiledGraph struct {
	TriggerNode *CompiledNode

	nodes    map[string]*CompiledNode
	next     map[string]string
	branches map[string]map[Branch]string
}

// Node returns the compiled node with the given id.
func (g *CompiledGraph) Node(id string) (*CompiledNode, bool) {
	node, ok := g.nodes[id]

	return node, ok
}

// Successor returns the single "next" successor of a trigger, action or
// delay node. ok is false for terminal nodes.
func (g *CompiledGraph) Successor(id string) (string, bool) {
	target, ok := g.next[id]

	return target, ok
}

// BranchTarget returns the node reached by following the labeled edge of a
// condition node.
func (g *CompiledGraph) BranchTarget(id string, branch Branch) (string, bool) {
	targets, ok := g.branches[id]
	if !ok {
		return "", false
	}

	target, ok := targets[branch]

	return target, ok
}

// Compile parses every node config and resolves adjacency. It reports
// per-node parse failures; structural invariants (trigger count, cycles,
// edge arity, reachability) are the validator's concern and are assumed to
// hold for published graphs.
func Compile(graph *Graph) (*CompiledGraph, error) {
	compiled := &CompiledGraph{
		nodes:    make(map[string]*CompiledNode, len(graph.Nodes)),
		next:     make(map[string]string),
		branches: make(map[string]map[Branch]string),
	}

	for _, node := range graph.Nodes {
		cn := &CompiledNode{ID: node.ID, Kind: node.Kind}

		var err error

		switch node.Kind {
		case NodeKindTrigger:
			compiled.TriggerNode = cn
		case NodeKindAction:
			cn.Action, err = ParseActionConfig(node.Config)
		case NodeKindCondition:
			cn.Condition, err = ParseConditionConfig(node.Config)
		case NodeKindDelay:
			cn.Delay, err = ParseDelayConfig(node.Config)
		default:
			err = fmt.Errorf("unknown node kind %q", node.Kind)
		}

		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}

		compiled.nodes[node.ID] = cn
	}

	if compiled.TriggerNode == nil {
		return nil, fmt.Errorf("graph has no trigger node")
	}

	for _, edge := range graph.Edges {
		switch edge.Branch {
		case BranchTrue, BranchFalse:
			if compiled.branches[edge.From] == nil {
				compiled.branches[edge.From] = make(map[Branch]string, 2)
			}

			compiled.branches[edge.From][edge.Branch] = edge.To
		default:
			compiled.next[edge.From] = edge.To
		}
	}

	return compiled, nil
}
