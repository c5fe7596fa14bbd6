package engine

import "fmt"

// Op names the Sync Adapter call that failed.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// SyncError reports a failed remote call. The local collection keeps whatever
// optimistic change triggered the call; reloading resynchronizes it.
type SyncError struct {
	Op Op
	// Ref is the shape's persisted id, or its draft key for creates.
	Ref string
	Err error
}

func (e *SyncError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s shapes: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s shape %s: %v", e.Op, e.Ref, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
