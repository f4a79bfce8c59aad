package types

import (
	"time"

	"github.com/google/uuid"
)

// ChangeOp enumerates the change-feed operations.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// Valid reports whether op is a known change operation.
func (op ChangeOp) Valid() bool {
	switch op {
	case OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

// ChangeEvent is one inbound change-feed notification. Insert and update
// events carry the full post-mutation row image; delete events carry only the
// row identifier. At is the revision signal used to order competing updates
// to the same row; a zero At falls back to arrival order.
type ChangeEvent struct {
	Op    ChangeOp
	Kind  Kind
	RowID uuid.UUID
	Row   Row
	At    time.Time
}
