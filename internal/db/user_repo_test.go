package db

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetcare/internal/types"
)

func TestUserRepository_ListEligible_HydratesRegistrations(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	users := newMockRows(
		[]any{"user-1", "a@example.com", strPtr("Ada"), true, true, true},
		[]any{"user-2", "b@example.com", nil, true, true, false},
	)
	regs := newMockRows(
		[]any{"user-1", "https://push.example/1", "p256", "auth"},
		[]any{"user-1", "https://push.example/2", "p256", "auth"},
		[]any{"ghost", "https://push.example/3", "p256", "auth"},
	)
	db.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return !containsPushTable(sql)
	}), []any{"", 100}).Return(users, nil).Once()
	db.On("Query", mock.Anything, mock.MatchedBy(containsPushTable), []any{[]string{"user-1", "user-2"}}).
		Return(regs, nil).Once()

	got, err := repo.ListEligible(context.Background(), "", 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Len(t, got[0].PushRegistrations, 2)
	assert.Equal(t, "", got[1].Name)
	assert.False(t, got[1].PushReminders)
	assert.Empty(t, got[1].PushRegistrations)
	db.AssertExpectations(t)
}

func TestUserRepository_ListEligible_EmptyPageSkipsRegistrations(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(newMockRows(), nil).Once()

	got, err := repo.ListEligible(context.Background(), "user-9", 50)
	require.NoError(t, err)
	assert.Empty(t, got)
	db.AssertNumberOfCalls(t, "Query", 1)
}

func TestUserRepository_GetEligible_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetEligible(context.Background(), "user-x")
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
}

func hasChannelFilter(sql string) bool {
	return strings.Contains(sql, "FROM users") &&
		strings.Contains(sql, "u.email_verified AND u.email_reminders") &&
		strings.Contains(sql, "u.push_reminders AND EXISTS")
}

func TestUserRepository_QueriesRequireAReminderChannel(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Query", mock.Anything, mock.MatchedBy(hasChannelFilter), []any{"", 10}).
		Return(newMockRows(), nil).Once()
	_, err := repo.ListEligible(context.Background(), "", 10)
	require.NoError(t, err)

	db.On("QueryRow", mock.Anything, mock.MatchedBy(hasChannelFilter), []any{"user-1"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows}).Once()
	_, err = repo.GetEligible(context.Background(), "user-1")
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))

	db.AssertExpectations(t)
}

func TestUserRepository_RemovePushRegistrations(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	n, err := repo.RemovePushRegistrations(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	db.On("Exec", mock.Anything, mock.Anything, []any{"user-1", []string{"https://push.example/1"}}).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)
	n, err = repo.RemovePushRegistrations(context.Background(), "user-1", []string{"https://push.example/1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// containsPushTable matches the registrations query. The user queries only
// touch push_registrations inside the eligibility subquery.
func containsPushTable(sql string) bool {
	return !strings.Contains(sql, "FROM users") && strings.Contains(sql, "push_registrations")
}
