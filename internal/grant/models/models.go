package models

import (
	"time"

	"idadmin/pkg/paging"
)

// Grant is a persisted record of an issued authorization or consent.
//
// Key is globally unique and immutable once created. A grant with no
// matching key is absent; the store never returns a null placeholder.
// Grants are created by the token-issuance process and only read or
// deleted here. Deletion is permanent; there is no soft delete.
type Grant struct {
	Key          string
	SubjectID    string
	Type         string
	ClientID     string
	CreationTime time.Time
	Expiration   *time.Time
	Data         string
}

// Expired reports whether the grant's expiry has passed at the given time.
// Grants without an expiry never expire.
func (g Grant) Expired(now time.Time) bool {
	return g.Expiration != nil && g.Expiration.Before(now)
}

// GrantsPage is one page of a grant listing for a single subject.
// SubjectID records the filter that produced the page.
type GrantsPage struct {
	SubjectID string
	Grants    paging.PagedList[Grant]
}

// SubjectGrants is one row of the subject-grouped search view: a subject
// together with its display name (from the subject directory) and how many
// grants it currently owns.
type SubjectGrants struct {
	SubjectID   string
	SubjectName string
	GrantCount  int
}

// SubjectsPage is one page of the subject-grouped search view.
type SubjectsPage struct {
	SearchTerm string
	Subjects   paging.PagedList[SubjectGrants]
}
