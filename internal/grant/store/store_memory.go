package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"idadmin/internal/grant/models"
	"idadmin/internal/sentinel"
	"idadmin/pkg/paging"
)

type opKind int

const (
	opSave opKind = iota
	opDeleteKey
	opDeleteSubject
)

type pendingOp struct {
	kind      opKind
	grant     *models.Grant
	key       string
	subjectID string
}

// InMemoryStore keeps grants in memory for tests and local development.
// Committed state lives in the grants map; with deferred writes enabled,
// mutations queue in pending until SaveAllChanges applies them.
type InMemoryStore struct {
	mu       sync.RWMutex
	grants   map[string]*models.Grant
	pending  []pendingOp
	autoSave bool
}

// Option configures the InMemoryStore.
type Option func(*InMemoryStore)

// WithDeferredWrites turns off AutoSaveChanges: mutating operations queue
// until SaveAllChanges is called.
func WithDeferredWrites() Option {
	return func(s *InMemoryStore) {
		s.autoSave = false
	}
}

// New constructs an empty in-memory grant store with AutoSaveChanges on.
func New(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		grants:   make(map[string]*models.Grant),
		autoSave: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(ctx context.Context, grant *models.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if grant == nil || grant.Key == "" || grant.SubjectID == "" {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[grant.Key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	copyGrant := *grant
	if !s.autoSave {
		s.pending = append(s.pending, pendingOp{kind: opSave, grant: &copyGrant})
		return nil
	}
	s.grants[grant.Key] = &copyGrant
	return nil
}

func (s *InMemoryStore) GetByKey(ctx context.Context, key string) (*models.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, sentinel.ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyGrant := *grant
	return &copyGrant, nil
}

func (s *InMemoryStore) GetBySubject(ctx context.Context, subjectID string, req paging.Request) (paging.PagedList[models.Grant], error) {
	var empty paging.PagedList[models.Grant]
	if err := ctx.Err(); err != nil {
		return empty, err
	}
	if subjectID == "" {
		return empty, sentinel.ErrInvalidInput
	}
	if err := req.Validate(); err != nil {
		return empty, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []models.Grant
	for _, grant := range s.grants {
		if grant.SubjectID == subjectID {
			owned = append(owned, *grant)
		}
	}
	sortGrants(owned)
	return paging.Slice(owned, req), nil
}

func (s *InMemoryStore) SearchSubjects(ctx context.Context, term string, req paging.Request) (paging.PagedList[models.SubjectGrants], error) {
	var empty paging.PagedList[models.SubjectGrants]
	if err := ctx.Err(); err != nil {
		return empty, err
	}
	if err := req.Validate(); err != nil {
		return empty, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, grant := range s.grants {
		if term == "" || strings.Contains(strings.ToLower(grant.SubjectID), strings.ToLower(term)) {
			counts[grant.SubjectID]++
		}
	}
	subjects := make([]models.SubjectGrants, 0, len(counts))
	for subjectID, count := range counts {
		subjects = append(subjects, models.SubjectGrants{SubjectID: subjectID, GrantCount: count})
	}
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].SubjectID < subjects[j].SubjectID
	})
	return paging.Slice(subjects, req), nil
}

func (s *InMemoryStore) ExistsByKey(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if key == "" {
		return false, sentinel.ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.grants[key]
	return ok, nil
}

func (s *InMemoryStore) ExistsBySubject(ctx context.Context, subjectID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if subjectID == "" {
		return false, sentinel.ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, grant := range s.grants {
		if grant.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) DeleteByKey(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[key]
	if !ok {
		return 0, nil
	}
	if !s.autoSave {
		if queuedRemove(s.pending, key, grant.SubjectID) {
			return 0, nil
		}
		s.pending = append(s.pending, pendingOp{kind: opDeleteKey, key: key})
		return 1, nil
	}
	delete(s.grants, key)
	return 1, nil
}

func (s *InMemoryStore) DeleteBySubject(ctx context.Context, subjectID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if subjectID == "" {
		return 0, sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.autoSave {
		// Count only grants not already covered by a queued delete, so
		// repeated calls do not report the same removals twice.
		count := 0
		for key, grant := range s.grants {
			if grant.SubjectID == subjectID && !queuedRemove(s.pending, key, subjectID) {
				count++
			}
		}
		if count == 0 {
			return 0, nil
		}
		s.pending = append(s.pending, pendingOp{kind: opDeleteSubject, subjectID: subjectID})
		return count, nil
	}
	count := 0
	for _, grant := range s.grants {
		if grant.SubjectID == subjectID {
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	for key, grant := range s.grants {
		if grant.SubjectID == subjectID {
			delete(s.grants, key)
		}
	}
	return count, nil
}

// SaveAllChanges applies queued writes in order and reports how many took
// effect. Deletes whose target disappeared in the meantime count as zero.
func (s *InMemoryStore) SaveAllChanges(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, op := range s.pending {
		switch op.kind {
		case opSave:
			if _, ok := s.grants[op.grant.Key]; !ok {
				s.grants[op.grant.Key] = op.grant
				applied++
			}
		case opDeleteKey:
			if _, ok := s.grants[op.key]; ok {
				delete(s.grants, op.key)
				applied++
			}
		case opDeleteSubject:
			for key, grant := range s.grants {
				if grant.SubjectID == op.subjectID {
					delete(s.grants, key)
					applied++
				}
			}
		}
	}
	s.pending = nil
	return applied, nil
}

// queuedRemove reports whether a pending operation already removes the
// grant, either by its key or by sweeping its subject. Keeps deferred
// delete counts from reporting the same removal twice.
func queuedRemove(pending []pendingOp, key, subjectID string) bool {
	for _, op := range pending {
		if op.kind == opDeleteKey && op.key == key {
			return true
		}
		if op.kind == opDeleteSubject && op.subjectID == subjectID {
			return true
		}
	}
	return false
}

// sortGrants orders newest first with the key as a stable tiebreak.
func sortGrants(grants []models.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		if !grants[i].CreationTime.Equal(grants[j].CreationTime) {
			return grants[i].CreationTime.After(grants[j].CreationTime)
		}
		return grants[i].Key < grants[j].Key
	})
}
