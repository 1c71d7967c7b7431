package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func codep(c int16) *int16  { return &c }

func TestGroupSummariesFoldsGrantsPerRoom(t *testing.T) {
	newer := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	rows := []listRow{
		{RoomID: "A", RoomName: "Notes", CreateTime: newer, OverallPermission: 1,
			PermUserID: strp("X"), Permission: codep(2), UserName: strp("Xavier"), Email: strp("x@example.com")},
		{RoomID: "A", RoomName: "Notes", CreateTime: newer, OverallPermission: 1,
			PermUserID: strp("Y"), Permission: codep(3), UserName: strp("Yara"), Email: strp("y@example.com")},
		{RoomID: "B", RoomName: "Draft", CreateTime: older, OverallPermission: 0},
	}

	got := groupSummaries(rows)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].RoomID)
	assert.Equal(t, "Notes", got[0].RoomName)
	assert.Equal(t, Level(1), got[0].OverallPermission)
	assert.Equal(t, map[string]SharedUser{
		"X": {ID: "X", UserName: "Xavier", Email: "x@example.com", Permission: 2},
		"Y": {ID: "Y", UserName: "Yara", Email: "y@example.com", Permission: 3},
	}, got[0].Permissions)

	assert.Equal(t, "B", got[1].RoomID)
	assert.NotNil(t, got[1].Permissions)
	assert.Empty(t, got[1].Permissions)
}

func TestGroupSummariesKeepsFirstSeenOrder(t *testing.T) {
	now := time.Now().UTC()
	rows := []listRow{
		{RoomID: "c", CreateTime: now},
		{RoomID: "a", CreateTime: now, PermUserID: strp("u1"), Permission: codep(2)},
		{RoomID: "b", CreateTime: now},
		{RoomID: "a", CreateTime: now, PermUserID: strp("u2"), Permission: codep(3)},
	}

	got := groupSummaries(rows)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].RoomID, got[1].RoomID, got[2].RoomID})
	assert.Len(t, got[1].Permissions, 2)
}

func TestGroupSummariesToleratesMissingUserColumns(t *testing.T) {
	got := groupSummaries([]listRow{{RoomID: "a", PermUserID: strp("ghost"), Permission: codep(2)}})
	require.Len(t, got, 1)
	assert.Equal(t, SharedUser{ID: "ghost", Permission: 2}, got[0].Permissions["ghost"])
}

func TestGroupSummariesEmpty(t *testing.T) {
	got := groupSummaries(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
