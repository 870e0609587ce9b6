// Package workflow provides graph validation and the publish lifecycle.
package workflow

import (
	"fmt"
	"strings"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/registry"
)

// ValidationError is one structural problem found in a workflow graph.
type ValidationError struct {
	NodeID string `json:"node_id,omitempty"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return e.Reason
	}

	return fmt.Sprintf("node %s: %s", e.NodeID, e.Reason)
}

// ValidationErrors collects every problem so the caller can surface them
// all at once instead of fixing one at a time.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	reasons := make([]string, len(e))
	for i, err := range e {
		reasons[i] = err.Error()
	}

	return strings.Join(reasons, "; ")
}

// Validator performs the structural checks run at publish time.
type Validator struct {
	registry *registry.Registry
}

func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate returns every structural problem in the workflow. A nil return
// means the graph is publishable.
func (v *Validator) Validate(workflow *models.Workflow) ValidationErrors {
	var errs ValidationErrors

	if workflow.Graph == nil || len(workflow.Graph.Nodes) == 0 {
		return append(errs, ValidationError{Reason: "workflow has no nodes"})
	}

	graph := workflow.Graph
	nodesByID := make(map[string]*models.Node, len(graph.Nodes))

	for _, node := range graph.Nodes {
		if node.ID == "" {
			errs = append(errs, ValidationError{Reason: "found node with empty id"})

			continue
		}

		if _, dup := nodesByID[node.ID]; dup {
			errs = append(errs, ValidationError{NodeID: node.ID, Reason: "duplicate node id"})

			continue
		}

		nodesByID[node.ID] = node
	}

	errs = append(errs, v.checkTrigger(workflow, nodesByID)...)
	errs = append(errs, v.checkEdges(graph, nodesByID)...)
	errs = append(errs, v.checkConfigs(graph)...)
	errs = append(errs, checkCycles(graph, nodesByID)...)
	errs = append(errs, checkReachability(graph, nodesByID)...)

	if len(errs) == 0 {
		return nil
	}

	return errs
}

func (v *Validator) checkTrigger(workflow *models.Workflow, nodesByID map[string]*models.Node) ValidationErrors {
	var errs ValidationErrors

	triggers := 0

	for _, node := range nodesByID {
		if node.Kind == models.NodeKindTrigger {
			triggers++
		}
	}

	if triggers == 0 {
		errs = append(errs, ValidationError{Reason: "workflow has no trigger node"})
	}

	if triggers > 1 {
		errs = append(errs, ValidationError{Reason: fmt.Sprintf("workflow has %d trigger nodes, expected exactly one", triggers)})
	}

	if workflow.TriggerConfig == nil {
		errs = append(errs, ValidationError{Reason: "workflow has no trigger config"})
	} else if err := workflow.TriggerConfig.Validate(); err != nil {
		errs = append(errs, ValidationError{Reason: err.Error()})
	}

	return errs
}

func (v *Validator) checkEdges(graph *models.Graph, nodesByID map[string]*models.Node) ValidationErrors {
	var errs ValidationErrors

	outgoing := make(map[string]map[models.Branch]int)

	for _, edge := range graph.Edges {
		if _, ok := nodesByID[edge.From]; !ok {
			errs = append(errs, ValidationError{NodeID: edge.From, Reason: "edge references unknown source node"})

			continue
		}

		if _, ok := nodesByID[edge.To]; !ok {
			errs = append(errs, ValidationError{NodeID: edge.From, Reason: fmt.Sprintf("edge targets unknown node '%s'", edge.To)})

			continue
		}

		if outgoing[edge.From] == nil {
			outgoing[edge.From] = make(map[models.Branch]int)
		}

		outgoing[edge.From][edge.Branch]++
	}

	for id, node := range nodesByID {
		branches := outgoing[id]

		if node.Kind == models.NodeKindCondition {
			if branches[models.BranchTrue] != 1 || branches[models.BranchFalse] != 1 {
				errs = append(errs, ValidationError{NodeID: id, Reason: "condition node must have exactly one true edge and one false edge"})
			}

			if branches[models.BranchNext] > 0 {
				errs = append(errs, ValidationError{NodeID: id, Reason: "condition node cannot have a next edge"})
			}

			continue
		}

		total := 0
		for _, count := range branches {
			total += count
		}

		if total > 1 {
			errs = append(errs, ValidationError{NodeID: id, Reason: "node has more than one outgoing edge"})
		}

		if branches[models.BranchTrue] > 0 || branches[models.BranchFalse] > 0 {
			errs = append(errs, ValidationError{NodeID: id, Reason: "branch edges are only valid on condition nodes"})
		}
	}

	return errs
}

func (v *Validator) checkConfigs(graph *models.Graph) ValidationErrors {
	var errs ValidationErrors

	for _, node := range graph.Nodes {
		if node.ID == "" {
			continue
		}

		switch node.Kind {
		case models.NodeKindTrigger:
		case models.NodeKindAction:
			config, err := models.ParseActionConfig(node.Config)
			if err != nil {
				errs = append(errs, ValidationError{NodeID: node.ID, Reason: err.Error()})

				continue
			}

			if v.registry != nil {
				if err := v.registry.ValidateConfig(config.Kind, node.Config); err != nil {
					errs = append(errs, ValidationError{NodeID: node.ID, Reason: err.Error()})
				}
			}
		case models.NodeKindCondition:
			if _, err := models.ParseConditionConfig(node.Config); err != nil {
				errs = append(errs, ValidationError{NodeID: node.ID, Reason: err.Error()})
			}
		case models.NodeKindDelay:
			if _, err := models.ParseDelayConfig(node.Config); err != nil {
				errs = append(errs, ValidationError{NodeID: node.ID, Reason: err.Error()})
			}
		default:
			errs = append(errs, ValidationError{NodeID: node.ID, Reason: fmt.Sprintf("unknown node kind '%s'", node.Kind)})
		}
	}

	return errs
}

// checkCycles walks the adjacency with a three-color DFS.
func checkCycles(graph *models.Graph, nodesByID map[string]*models.Node) ValidationErrors {
	adjacency := make(map[string][]string)
	for _, edge := range graph.Edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)

	state := make(map[string]int, len(nodesByID))

	var errs ValidationErrors

	var visit func(id string) bool

	visit = func(id string) bool {
		state[id] = visiting

		for _, next := range adjacency[id] {
			switch state[next] {
			case visiting:
				errs = append(errs, ValidationError{NodeID: next, Reason: "graph contains a cycle through this node"})

				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}

		state[id] = done

		return false
	}

	for id := range nodesByID {
		if state[id] == unvisited {
			if visit(id) {
				break
			}
		}
	}

	return errs
}

// checkReachability flags nodes the trigger can never reach.
func checkReachability(graph *models.Graph, nodesByID map[string]*models.Node) ValidationErrors {
	var triggerID string

	for id, node := range nodesByID {
		if node.Kind == models.NodeKindTrigger {
			triggerID = id

			break
		}
	}

	if triggerID == "" {
		return nil
	}

	adjacency := make(map[string][]string)
	for _, edge := range graph.Edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}

	reachable := make(map[string]bool, len(nodesByID))
	queue := []string{triggerID}
	reachable[triggerID] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if !reachable[next] {
				reachable[next] = true

				queue = append(queue, next)
			}
		}
	}

	var errs ValidationErrors

	for _, node := range graph.Nodes {
		if node.ID != "" && !reachable[node.ID] {
			errs = append(errs, ValidationError{NodeID: node.ID, Reason: "node is not reachable from the trigger"})
		}
	}

	return errs
}
