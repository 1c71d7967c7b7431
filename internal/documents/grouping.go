package documents

import "time"

// listRow is one flat row of the owner listing join. The permission and user
// columns are NULL when the document has no listed grants.
type listRow struct {
	RoomID            string
	RoomName          string
	CreateTime        time.Time
	OverallPermission int16
	PermUserID        *string
	Permission        *int16
	UserName          *string
	Email             *string
}

// groupSummaries folds joined rows into one Summary per room, keeping the
// order in which rooms are first seen.
func groupSummaries(rows []listRow) []Summary {
	summaries := make([]Summary, 0)
	index := make(map[string]int)

	for _, row := range rows {
		i, seen := index[row.RoomID]
		if !seen {
			i = len(summaries)
			index[row.RoomID] = i
			summaries = append(summaries, Summary{
				RoomID:            row.RoomID,
				RoomName:          row.RoomName,
				CreateTime:        row.CreateTime,
				OverallPermission: Level(row.OverallPermission),
				Permissions:       make(map[string]SharedUser),
			})
		}

		if row.PermUserID == nil {
			continue
		}
		entry := SharedUser{ID: *row.PermUserID}
		if row.UserName != nil {
			entry.UserName = *row.UserName
		}
		if row.Email != nil {
			entry.Email = *row.Email
		}
		if row.Permission != nil {
			entry.Permission = Level(*row.Permission)
		}
		summaries[i].Permissions[entry.ID] = entry
	}

	return summaries
}
