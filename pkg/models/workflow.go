// Package models defines the core domain models for node-based workflow automation
package models

import "time"

// Workflow is a user-owned graph of one trigger node and its action nodes.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"       validate:"required,min=3"`
	UserID    string    `json:"user_id"    validate:"required"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
	Executed  bool      `json:"executed"` // Has this workflow run at least once
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge is a directed connection between two nodes of the same workflow.
// Source executes causally before Target.
type Edge struct {
	ID     string `json:"id"     validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// TriggerNode returns the workflow's trigger node, or nil if absent.
func (w *Workflow) TriggerNode() *Node {
	for _, node := range w.Nodes {
		if node.IsTrigger() {
			return node
		}
	}

	return nil
}

// NodeByID returns the node with the given ID, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
