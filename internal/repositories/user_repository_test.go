package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The insert resolves username conflicts inside the statement: ON CONFLICT DO
// NOTHING returns no row for a taken name, which surfaces as ErrUsernameTaken.
func TestCreateUserUsernameTaken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`(?s)INSERT INTO users \(username, password_hash\).*ON CONFLICT \(username\) DO NOTHING\s+RETURNING`).
		WithArgs("alice", "digest").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_seen"}))

	_, err := repo.CreateUser(context.Background(), "alice", "digest")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "digest").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_seen"}).
			AddRow(1, "alice", "digest", now, now))

	user, err := repo.CreateUser(context.Background(), "alice", "digest")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Online means seen within the fixed five-minute window, and the caller never
// appears in their own list.
func TestOnlineUsersWindowExcludesCaller(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Now()
	mock.ExpectQuery(`(?s)WHERE last_seen > NOW\(\) - INTERVAL '5 minutes' AND id != \$1\s+ORDER BY username`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "last_seen"}).
			AddRow(2, "bob", now))

	users, err := repo.OnlineUsers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchUpdatesLastSeen(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET last_seen = NOW\(\) WHERE id=\$1`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Touch(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
