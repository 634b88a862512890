package models

// Audit event actions emitted by the command service.
const (
	AuditActionGrantDeleted            = "grant_deleted"
	AuditActionGrantsDeletedForSubject = "grants_deleted_for_subject"
)

// GrantDeleted is published after a single grant was removed. The payload
// carries only the key; subscribers needing more must have captured it
// before deletion.
type GrantDeleted struct {
	Key string
}

// GrantsDeletedForSubject is published after all grants of a subject were
// removed. Deleted is the number of records that were physically removed.
type GrantsDeletedForSubject struct {
	SubjectID string
	Deleted   int
}
