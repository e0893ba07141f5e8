package domain

// BatchState is the lifecycle position of one upload batch.
type BatchState string

// Upload batch states. Staged -> Submitted -> {Promoted | RolledBack}.
const (
	BatchStaged     BatchState = "staged"
	BatchSubmitted  BatchState = "submitted"
	BatchPromoted   BatchState = "promoted"
	BatchRolledBack BatchState = "rolled_back"
)

// CanTransition reports whether moving from s to next is allowed.
func (s BatchState) CanTransition(next BatchState) bool {
	switch s {
	case BatchStaged:
		return next == BatchSubmitted || next == BatchRolledBack
	case BatchSubmitted:
		return next == BatchPromoted || next == BatchRolledBack
	default:
		return false
	}
}

// UploadBatch tracks one reconciliation pass.
type UploadBatch struct {
	// ID identifies the batch in logs.
	ID string

	// WorkspaceID is empty in single-file mode.
	WorkspaceID string

	// State is the current lifecycle position.
	State BatchState

	// Staged holds the provisional records in submission order.
	Staged []StagedFile

	// Files holds the canonical descriptors once promoted.
	Files []CanonicalFile
}

// TempIDs returns the staged temporary ids in submission order.
func (b *UploadBatch) TempIDs() []string {
	ids := make([]string, len(b.Staged))
	for i, s := range b.Staged {
		ids[i] = s.TempID
	}
	return ids
}

// Advance moves the batch to next, refusing illegal transitions.
func (b *UploadBatch) Advance(next BatchState) error {
	if !b.State.CanTransition(next) {
		return ErrInvalidTransition
	}
	b.State = next
	return nil
}
