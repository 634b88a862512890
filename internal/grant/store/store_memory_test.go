package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idadmin/internal/grant/models"
	"idadmin/internal/sentinel"
	"idadmin/pkg/paging"
)

func seedGrant(t *testing.T, s *InMemoryStore, key, subjectID string, createdAt time.Time) {
	t.Helper()
	err := s.Save(context.Background(), &models.Grant{
		Key:          key,
		SubjectID:    subjectID,
		Type:         "refresh_token",
		ClientID:     "admin-ui",
		CreationTime: createdAt,
		Data:         "{}",
	})
	require.NoError(t, err)
}

func TestInMemoryStore_RoundTrip(t *testing.T) {
	s := New()
	now := time.Now()
	seedGrant(t, s, "g1", "u1", now)

	grant, err := s.GetByKey(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", grant.Key)
	assert.Equal(t, "u1", grant.SubjectID)

	// Returned record is a copy; mutating it must not touch the store.
	grant.SubjectID = "tampered"
	again, err := s.GetByKey(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.SubjectID)
}

func TestInMemoryStore_GetByKeyAbsent(t *testing.T) {
	s := New()
	_, err := s.GetByKey(context.Background(), "missing")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_SaveDuplicateKey(t *testing.T) {
	s := New()
	seedGrant(t, s, "g1", "u1", time.Now())
	err := s.Save(context.Background(), &models.Grant{Key: "g1", SubjectID: "u2", CreationTime: time.Now()})
	require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestInMemoryStore_InvalidInput(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetByKey(ctx, "")
	require.ErrorIs(t, err, sentinel.ErrInvalidInput)

	_, err = s.ExistsBySubject(ctx, "")
	require.ErrorIs(t, err, sentinel.ErrInvalidInput)

	_, err = s.DeleteByKey(ctx, "")
	require.ErrorIs(t, err, sentinel.ErrInvalidInput)

	_, err = s.GetBySubject(ctx, "u1", paging.Request{Page: 0, PageSize: 10})
	require.ErrorIs(t, err, paging.ErrInvalidPage)

	_, err = s.GetBySubject(ctx, "u1", paging.Request{Page: 1, PageSize: 0})
	require.ErrorIs(t, err, paging.ErrInvalidPageSize)
}

func TestInMemoryStore_GetBySubjectOrderingAndPaging(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedGrant(t, s, fmt.Sprintf("g%d", i), "u1", base.Add(time.Duration(i)*time.Minute))
	}
	seedGrant(t, s, "other", "u2", base)

	page, err := s.GetBySubject(context.Background(), "u1", paging.Request{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	require.Len(t, page.Items, 2)
	// Newest first.
	assert.Equal(t, "g4", page.Items[0].Key)
	assert.Equal(t, "g3", page.Items[1].Key)

	last, err := s.GetBySubject(context.Background(), "u1", paging.Request{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "g0", last.Items[0].Key)
}

func TestInMemoryStore_SearchSubjects(t *testing.T) {
	s := New()
	now := time.Now()
	seedGrant(t, s, "g1", "alice", now)
	seedGrant(t, s, "g2", "alice", now)
	seedGrant(t, s, "g3", "bob", now)
	seedGrant(t, s, "g4", "malice", now)

	t.Run("empty term matches all subjects", func(t *testing.T) {
		page, err := s.SearchSubjects(context.Background(), "", paging.Request{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalCount)
	})

	t.Run("substring match is case-insensitive", func(t *testing.T) {
		page, err := s.SearchSubjects(context.Background(), "ALiCe", paging.Request{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "alice", page.Items[0].SubjectID)
		assert.Equal(t, 2, page.Items[0].GrantCount)
		assert.Equal(t, "malice", page.Items[1].SubjectID)
	})
}

func TestInMemoryStore_DeleteByKey(t *testing.T) {
	s := New()
	seedGrant(t, s, "g1", "u1", time.Now())

	n, err := s.DeleteByKey(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Deleting an absent key is a no-op, not an error.
	n, err = s.DeleteByKey(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.GetByKey(context.Background(), "g1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_DeleteBySubject(t *testing.T) {
	s := New()
	now := time.Now()
	seedGrant(t, s, "g1", "u1", now)
	seedGrant(t, s, "g2", "u1", now)
	seedGrant(t, s, "g3", "u2", now)

	n, err := s.DeleteBySubject(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, key := range []string{"g1", "g2"} {
		_, err = s.GetByKey(context.Background(), key)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	}
	// Other subjects are untouched.
	_, err = s.GetByKey(context.Background(), "g3")
	require.NoError(t, err)

	n, err = s.DeleteBySubject(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInMemoryStore_DeferredWrites(t *testing.T) {
	s := New(WithDeferredWrites())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &models.Grant{Key: "g1", SubjectID: "u1", CreationTime: time.Now()}))

	// Not visible until committed.
	_, err := s.GetByKey(ctx, "g1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	applied, err := s.SaveAllChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	_, err = s.GetByKey(ctx, "g1")
	require.NoError(t, err)

	// Deferred delete: reported against committed state, applied at commit.
	n, err := s.DeleteByKey(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.GetByKey(ctx, "g1")
	require.NoError(t, err)

	applied, err = s.SaveAllChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	_, err = s.GetByKey(ctx, "g1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	// Nothing pending: commit is a no-op.
	applied, err = s.SaveAllChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestInMemoryStore_DeferredDeleteCountsEachRemovalOnce(t *testing.T) {
	s := New(WithDeferredWrites())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &models.Grant{Key: "g1", SubjectID: "u1", CreationTime: time.Now()}))
	require.NoError(t, s.Save(ctx, &models.Grant{Key: "g2", SubjectID: "u1", CreationTime: time.Now()}))
	_, err := s.SaveAllChanges(ctx)
	require.NoError(t, err)

	// First queued delete claims the removal; repeating it reports zero.
	n, err := s.DeleteByKey(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteByKey(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A subject sweep counts only grants not already queued for removal.
	n, err = s.DeleteBySubject(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteBySubject(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	applied, err := s.SaveAllChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	s := New()
	seedGrant(t, s, "g1", "u1", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetByKey(ctx, "g1")
	require.ErrorIs(t, err, context.Canceled)

	n, err := s.DeleteByKey(ctx, "g1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)

	// No partial effect from the cancelled delete.
	_, err = s.GetByKey(context.Background(), "g1")
	require.NoError(t, err)
}
