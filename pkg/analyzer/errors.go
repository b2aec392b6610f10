package analyzer

import "fmt"

// StructuralError means a collaborator handed over input that breaks the
// detector's contract. It aborts the run.
type StructuralError struct {
	Collection string // "required" or "installed"
	Name       string
	Reason     string
}

func (e *StructuralError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid %s packages: %s: %s", e.Collection, e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid %s packages: %s", e.Collection, e.Reason)
}
