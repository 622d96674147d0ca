package models

// OperationType is the kind of a batched entity operation
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// Operation is one entry of a batch submitted to the operations endpoint.
type Operation struct {
	ID         string         `json:"id"`
	Type       OperationType  `json:"type"`
	EntityType EntityType     `json:"entityType"`
	EntityID   string         `json:"entityId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// OperationResult reports the outcome of a single operation.
type OperationResult struct {
	ID       string        `json:"id"`
	Type     OperationType `json:"type"`
	Success  bool          `json:"success"`
	EntityID string        `json:"entityId,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// BatchResult is the response of the operations endpoint. Partial success is normal.
type BatchResult struct {
	Success    bool              `json:"success"`
	Operations []OperationResult `json:"operations"`
}

// Succeeded returns the ids of successful operations of the given types, or of
// every type when none is given.
func (r *BatchResult) Succeeded(types ...OperationType) []string {
	var ids []string
	for _, op := range r.Operations {
		if !op.Success || !matchesType(op.Type, types) {
			continue
		}
		ids = append(ids, op.ID)
	}
	return ids
}

// Failures maps the id of every failed operation to its error message.
func (r *BatchResult) Failures() map[string]string {
	failed := make(map[string]string)
	for _, op := range r.Operations {
		if !op.Success {
			failed[op.ID] = op.Error
		}
	}
	return failed
}

func matchesType(t OperationType, types []OperationType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}
