package documents

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkroom/inkroom/internal/platform/db"
	"github.com/inkroom/inkroom/internal/shared"
)

// openTestPool connects to INKROOM_TEST_PG_DSN and applies the schema. Tests
// using it are skipped when the variable is unset.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("INKROOM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("INKROOM_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.New(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool, name string) string {
	t.Helper()
	id := "it-" + uuid.NewString()
	_, err := pool.Exec(context.Background(), `INSERT INTO "user" (id, user_name, email) VALUES ($1, $2, $3)`, id, name, name+"@example.com")
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM permission WHERE user_id = $1 OR room_id IN (SELECT room_id FROM document WHERE owner_user_id = $1)`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM content WHERE room_id IN (SELECT room_id FROM document WHERE owner_user_id = $1)`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM document WHERE owner_user_id = $1`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	})
	return id
}

func TestRepositoryRoundTrip(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	owner := seedUser(t, pool, "owner")
	x := seedUser(t, pool, "xavier")
	y := seedUser(t, pool, "yara")

	svc := NewService(NewRepository(pool), ServiceConfig{})
	newer := time.Now().UTC().Truncate(time.Microsecond)
	roomA, roomB := "it-"+uuid.NewString(), "it-"+uuid.NewString()

	_, err := svc.CreateDocument(ctx, CreateDocumentInput{RoomID: roomA, RoomName: "A", CreateTime: newer, OwnerID: owner, Content: "alpha"})
	require.NoError(t, err)
	_, err = svc.CreateDocument(ctx, CreateDocumentInput{RoomID: roomB, RoomName: "B", CreateTime: newer.Add(-time.Hour), OwnerID: owner})
	require.NoError(t, err)

	_, err = svc.CreateDocument(ctx, CreateDocumentInput{RoomID: roomA, RoomName: "dup", OwnerID: owner})
	require.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, svc.GrantPermission(ctx, roomA, x, 2))
	require.NoError(t, svc.GrantPermission(ctx, roomA, y, 1))
	require.NoError(t, svc.GrantPermission(ctx, roomA, y, 3))
	require.NoError(t, svc.GrantPermission(ctx, roomB, x, 1))
	require.ErrorIs(t, svc.GrantPermission(ctx, roomA, "it-missing-user", 2), ErrUnknownUser)
	require.ErrorIs(t, svc.GrantPermission(ctx, "it-missing-room", x, 2), ErrNotFound)

	summaries, err := svc.ListDocuments(ctx, owner)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, roomA, summaries[0].RoomID)
	assert.Equal(t, Level(2), summaries[0].Permissions[x].Permission)
	assert.Equal(t, Level(3), summaries[0].Permissions[y].Permission)
	assert.Equal(t, roomB, summaries[1].RoomID)
	assert.Empty(t, summaries[1].Permissions)

	ok, err := svc.ChangePermission(ctx, roomB, x, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.ChangePermission(ctx, roomB, y, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.RevokePermission(ctx, roomB, x)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.RevokePermission(ctx, roomB, x)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RenameDocument(ctx, roomB, "Renamed")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.UpdateVisibility(ctx, roomB, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.UpdateVisibility(ctx, "it-missing-room", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	name, level := "Patched", Level(-1)
	_, err = svc.UpdateDocument(ctx, roomB, DocumentPatch{RoomName: &name, OverallPermission: &level})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	level = 3
	ok, err = svc.UpdateDocument(ctx, roomB, DocumentPatch{RoomName: &name, OverallPermission: &level})
	require.NoError(t, err)
	assert.True(t, ok)
	doc, err := svc.GetDocument(ctx, roomB)
	require.NoError(t, err)
	assert.Equal(t, "Patched", doc.RoomName)
	assert.Equal(t, Level(3), doc.OverallPermission)

	updated, err := svc.UpdateContent(ctx, roomA, "beta")
	require.NoError(t, err)
	assert.True(t, updated)
	content, err := svc.GetContent(ctx, roomA)
	require.NoError(t, err)
	assert.Equal(t, "beta", content)

	updated, err = svc.UpdateContent(ctx, "it-missing-room", "x")
	require.NoError(t, err)
	assert.False(t, updated)

	result, err := svc.DeleteDocument(ctx, roomA)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Existed: true, Permissions: 2, Content: 1}, result)

	_, err = svc.GetContent(ctx, roomA)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGrantPermissionResolvesRenamedConstraints(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	owner := seedUser(t, pool, "owner")

	_, err := pool.Exec(ctx, `ALTER TABLE permission RENAME CONSTRAINT permission_user_fk TO permission_member_ref`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `ALTER TABLE permission RENAME CONSTRAINT permission_member_ref TO permission_user_fk`)
	})

	svc := NewService(NewRepository(pool), ServiceConfig{})
	room := "it-" + uuid.NewString()
	_, err = svc.CreateDocument(ctx, CreateDocumentInput{RoomID: room, RoomName: "A", OwnerID: owner})
	require.NoError(t, err)

	require.ErrorIs(t, svc.GrantPermission(ctx, room, "it-missing-user", 2), ErrUnknownUser)
	require.ErrorIs(t, svc.GrantPermission(ctx, "it-missing-room", owner, 2), ErrNotFound)
}
