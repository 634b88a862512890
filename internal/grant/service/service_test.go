package service

// Unit tests for the grant query and command services. These enforce
// invariants, error translation across the store boundary, and audit/event
// emission; end-to-end behavior is covered by integration_test.go against
// the real in-memory store.

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idadmin/internal/audit"
	"idadmin/internal/grant/events"
	"idadmin/internal/grant/models"
	"idadmin/internal/grant/service/mocks"
	"idadmin/internal/sentinel"
	dErrors "idadmin/pkg/domain-errors"
	"idadmin/pkg/paging"
)

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockStore     *mocks.MockStore
	mockDirectory *mocks.MockSubjectDirectory
	auditStore    *audit.InMemoryStore
	bus           *events.Bus
	busEvents     <-chan events.Event
	query         *QueryService
	command       *CommandService
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockDirectory = mocks.NewMockSubjectDirectory(s.ctrl)
	s.auditStore = audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.bus = events.NewBus(logger)
	s.busEvents = s.bus.Subscribe(8)
	auditor := audit.NewPublisher(s.auditStore)
	s.query = NewQueryService(s.mockStore, s.mockDirectory, logger)
	s.command = NewCommandService(s.mockStore, auditor, logger, WithEventBus(s.bus))
}

func (s *ServiceSuite) TearDownTest() {
	s.bus.Close()
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestSearch_PagingValidation() {
	s.T().Run("page zero is invalid_argument", func(t *testing.T) {
		_, err := s.query.Search(context.Background(), "", 0, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.T().Run("page size zero is invalid_argument", func(t *testing.T) {
		_, err := s.query.Search(context.Background(), "term", 1, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.T().Run("negative page size is invalid_argument", func(t *testing.T) {
		_, err := s.query.Search(context.Background(), "term", 1, -5)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *ServiceSuite) TestSearch_JoinsDirectoryNames() {
	page := paging.NewPagedList([]models.SubjectGrants{
		{SubjectID: "u1", GrantCount: 2},
		{SubjectID: "u2", GrantCount: 1},
	}, 2, 10)
	s.mockStore.EXPECT().
		SearchSubjects(gomock.Any(), "u", paging.Request{Page: 1, PageSize: 10}).
		Return(page, nil)
	s.mockDirectory.EXPECT().
		DisplayNames(gomock.Any(), []string{"u1", "u2"}).
		Return(map[string]string{"u1": "Alice", "u2": "Bob"}, nil)

	result, err := s.query.Search(context.Background(), "u", 1, 10)
	s.Require().NoError(err)
	s.Equal("u", result.SearchTerm)
	s.Require().Len(result.Subjects.Items, 2)
	s.Equal("Alice", result.Subjects.Items[0].SubjectName)
	s.Equal("Bob", result.Subjects.Items[1].SubjectName)
}

func (s *ServiceSuite) TestSearch_DirectoryFailureIsTolerated() {
	page := paging.NewPagedList([]models.SubjectGrants{
		{SubjectID: "u1", GrantCount: 2},
	}, 1, 10)
	s.mockStore.EXPECT().
		SearchSubjects(gomock.Any(), "", paging.Request{Page: 1, PageSize: 10}).
		Return(page, nil)
	s.mockDirectory.EXPECT().
		DisplayNames(gomock.Any(), []string{"u1"}).
		Return(nil, assert.AnError)

	result, err := s.query.Search(context.Background(), "", 1, 10)
	s.Require().NoError(err)
	s.Require().Len(result.Subjects.Items, 1)
	s.Empty(result.Subjects.Items[0].SubjectName)
}

func (s *ServiceSuite) TestSearch_StoreErrorTranslation() {
	s.T().Run("unavailability surfaces as storage_unavailable", func(t *testing.T) {
		s.mockStore.EXPECT().
			SearchSubjects(gomock.Any(), "x", gomock.Any()).
			Return(paging.PagedList[models.SubjectGrants]{}, sentinel.ErrUnavailable)

		_, err := s.query.Search(context.Background(), "x", 1, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.T().Run("unexpected error surfaces as internal", func(t *testing.T) {
		s.mockStore.EXPECT().
			SearchSubjects(gomock.Any(), "x", gomock.Any()).
			Return(paging.PagedList[models.SubjectGrants]{}, assert.AnError)

		_, err := s.query.Search(context.Background(), "x", 1, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.T().Run("cancellation surfaces as cancelled", func(t *testing.T) {
		s.mockStore.EXPECT().
			SearchSubjects(gomock.Any(), "x", gomock.Any()).
			Return(paging.PagedList[models.SubjectGrants]{}, context.Canceled)

		_, err := s.query.Search(context.Background(), "x", 1, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCancelled))
	})
}

func (s *ServiceSuite) TestGetByKey() {
	s.T().Run("empty key is invalid_argument", func(t *testing.T) {
		_, err := s.query.GetByKey(context.Background(), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.T().Run("absent key is not_found", func(t *testing.T) {
		s.mockStore.EXPECT().
			GetByKey(gomock.Any(), "missing").
			Return(nil, sentinel.ErrNotFound)

		_, err := s.query.GetByKey(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.T().Run("present key round-trips", func(t *testing.T) {
		s.mockStore.EXPECT().
			GetByKey(gomock.Any(), "g1").
			Return(&models.Grant{Key: "g1", SubjectID: "u1"}, nil)

		grant, err := s.query.GetByKey(context.Background(), "g1")
		require.NoError(t, err)
		assert.Equal(t, "u1", grant.SubjectID)
	})
}

func (s *ServiceSuite) TestListBySubject_Validation() {
	_, err := s.query.ListBySubject(context.Background(), "", 1, 10)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	_, err = s.query.ListBySubject(context.Background(), "u1", 0, 10)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func (s *ServiceSuite) TestDeleteGrant_NotFound() {
	s.mockStore.EXPECT().
		ExistsByKey(gomock.Any(), "absent").
		Return(false, nil)

	err := s.command.DeleteGrant(context.Background(), "absent")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// No audit event for a rejected delete.
	all, listErr := s.auditStore.ListAll(context.Background())
	s.Require().NoError(listErr)
	s.Empty(all)
}

func (s *ServiceSuite) TestDeleteGrant_Success() {
	s.mockStore.EXPECT().
		ExistsByKey(gomock.Any(), "g1").
		Return(true, nil)
	s.mockStore.EXPECT().
		DeleteByKey(gomock.Any(), "g1").
		Return(1, nil)

	err := s.command.DeleteGrant(context.Background(), "g1")
	s.Require().NoError(err)

	all, listErr := s.auditStore.ListAll(context.Background())
	s.Require().NoError(listErr)
	s.Require().Len(all, 1)
	s.Equal(models.AuditActionGrantDeleted, all[0].Action)
	s.Equal("g1", all[0].GrantKey)
	s.Equal(1, all[0].Deleted)

	select {
	case event := <-s.busEvents:
		deleted, ok := event.(events.GrantDeletedEvent)
		s.Require().True(ok)
		s.Equal("g1", deleted.Key)
	default:
		s.Fail("expected a GrantDeleted event on the bus")
	}
}

func (s *ServiceSuite) TestDeleteGrant_ConcurrentDeleterWinsStillSuccess() {
	// The existence check passed but another deleter removed the record
	// before our delete: zero rows affected is still success.
	s.mockStore.EXPECT().
		ExistsByKey(gomock.Any(), "g1").
		Return(true, nil)
	s.mockStore.EXPECT().
		DeleteByKey(gomock.Any(), "g1").
		Return(0, nil)

	err := s.command.DeleteGrant(context.Background(), "g1")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestDeleteGrant_StoreErrors() {
	s.T().Run("exists check unavailability", func(t *testing.T) {
		s.mockStore.EXPECT().
			ExistsByKey(gomock.Any(), "g1").
			Return(false, sentinel.ErrUnavailable)

		err := s.command.DeleteGrant(context.Background(), "g1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.T().Run("delete failure after passing check", func(t *testing.T) {
		s.mockStore.EXPECT().
			ExistsByKey(gomock.Any(), "g1").
			Return(true, nil)
		s.mockStore.EXPECT().
			DeleteByKey(gomock.Any(), "g1").
			Return(0, assert.AnError)

		err := s.command.DeleteGrant(context.Background(), "g1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.T().Run("empty key fails before store access", func(t *testing.T) {
		err := s.command.DeleteGrant(context.Background(), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *ServiceSuite) TestDeleteGrantsForSubject() {
	s.T().Run("subject without grants is not_found", func(t *testing.T) {
		s.mockStore.EXPECT().
			ExistsBySubject(gomock.Any(), "u9").
			Return(false, nil)

		err := s.command.DeleteGrantsForSubject(context.Background(), "u9")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.T().Run("success publishes event with deleted count", func(t *testing.T) {
		s.mockStore.EXPECT().
			ExistsBySubject(gomock.Any(), "u1").
			Return(true, nil)
		s.mockStore.EXPECT().
			DeleteBySubject(gomock.Any(), "u1").
			Return(2, nil)

		err := s.command.DeleteGrantsForSubject(context.Background(), "u1")
		require.NoError(t, err)

		select {
		case event := <-s.busEvents:
			deleted, ok := event.(events.GrantsDeletedForSubjectEvent)
			require.True(t, ok)
			assert.Equal(t, "u1", deleted.SubjectID)
			assert.Equal(t, 2, deleted.Deleted)
		default:
			t.Fatal("expected a GrantsDeletedForSubject event on the bus")
		}
	})

	s.T().Run("empty subject fails before store access", func(t *testing.T) {
		err := s.command.DeleteGrantsForSubject(context.Background(), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}
