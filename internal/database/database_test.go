package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/workspace-relay/internal/config"
	"github.com/thereayou/workspace-relay/internal/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func msg(ws, from, to, content string, at time.Time) *models.Message {
	return &models.Message{
		WorkspaceID: ws,
		SenderID:    from,
		ReceiverID:  to,
		Content:     content,
		Category:    models.CategoryText,
		Timestamp:   at,
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}

func TestAppendMessage_AssignsID(t *testing.T) {
	db := openTestDB(t)
	m := msg("w1", "u1", models.WorkspaceReceiver, "hello", time.Now())

	require.NoError(t, db.AppendMessage(context.Background(), m))
	assert.NotEqual(t, uuid.Nil, m.ID)
	require.NoError(t, db.Ping(context.Background()))
}

func TestListPublicMessages(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u1", models.WorkspaceReceiver, "second", base.Add(2*time.Second))))
	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u2", models.WorkspaceReceiver, "first", base.Add(time.Second))))
	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u1", "u2", "private", base)))
	require.NoError(t, db.AppendMessage(ctx, msg("w2", "u1", models.WorkspaceReceiver, "other tenant", base)))

	got, err := db.ListPublicMessages(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)

	got, err = db.ListPublicMessages(ctx, "w3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListPrivateMessages(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u2", "u1", "reply", base.Add(time.Second))))
	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u1", "u2", "hi", base)))
	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u1", "u3", "someone else", base)))
	require.NoError(t, db.AppendMessage(ctx, msg("w2", "u1", "u2", "other tenant", base)))
	require.NoError(t, db.AppendMessage(ctx, msg("w1", "u1", models.WorkspaceReceiver, "public", base)))

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		got, err := db.ListPrivateMessages(ctx, "w1", pair[0], pair[1])
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "hi", got[0].Content)
		assert.Equal(t, "reply", got[1].Content)
	}
}

func TestUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u := &models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, db.SaveUser(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	found, err := db.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	require.NoError(t, db.UpdateLastSeen(ctx, u.ID.String()))
	got, err := db.GetUser(ctx, u.ID.String())
	require.NoError(t, err)
	assert.False(t, got.LastSeenAt.IsZero())

	assert.Error(t, db.UpdateLastSeen(ctx, uuid.NewString()))
	assert.Error(t, db.SaveUser(ctx, &models.User{Username: "ada", Email: "other@example.com", PasswordHash: "x"}))
}
