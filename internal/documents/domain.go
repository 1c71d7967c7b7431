package documents

import (
	"fmt"
	"time"

	"github.com/inkroom/inkroom/internal/shared"
)

var (
	// ErrNotFound indicates the room does not exist.
	ErrNotFound = fmt.Errorf("documents: room %w", shared.ErrNotFound)
	// ErrUnknownUser indicates a referenced user does not exist.
	ErrUnknownUser = fmt.Errorf("documents: user %w", shared.ErrNotFound)
	// ErrAlreadyExists indicates the room id is taken.
	ErrAlreadyExists = fmt.Errorf("documents: room %w", shared.ErrAlreadyExists)
)

// Level is a permission level code. Only ListedLevels carry meaning at this
// layer: they are the tiers shown in a document's sharing list.
type Level int16

// ListedLevels are the permission levels surfaced by ListDocuments.
var ListedLevels = []Level{2, 3}

func levelCodes(levels []Level) []int16 {
	codes := make([]int16, len(levels))
	for i, l := range levels {
		codes[i] = int16(l)
	}
	return codes
}

// Document is the metadata row of a room.
type Document struct {
	RoomID            string    `json:"room_id"`
	RoomName          string    `json:"room_name"`
	CreateTime        time.Time `json:"create_time"`
	OverallPermission Level     `json:"overall_permission"`
	OwnerID           string    `json:"owner_user_id"`
}

// SharedUser is one entry of a document's sharing list.
type SharedUser struct {
	ID         string `json:"id"`
	UserName   string `json:"user_name"`
	Email      string `json:"email"`
	Permission Level  `json:"permission"`
}

// Summary is a document owned by a user together with its granted permissions,
// keyed by granted user id.
type Summary struct {
	RoomID            string                `json:"room_id"`
	RoomName          string                `json:"room_name"`
	CreateTime        time.Time             `json:"create_time"`
	OverallPermission Level                 `json:"overall_permission"`
	Permissions       map[string]SharedUser `json:"permissions"`
}

// CreateDocumentInput carries the fields of a new document and its initial
// content. RoomID and CreateTime are filled in when left empty.
type CreateDocumentInput struct {
	RoomID            string    `json:"room_id" validate:"omitempty,max=128"`
	RoomName          string    `json:"room_name" validate:"required,max=255"`
	CreateTime        time.Time `json:"create_time"`
	OwnerID           string    `json:"user_id" validate:"required,max=128"`
	Content           string    `json:"content"`
	OverallPermission Level     `json:"overall_permission" validate:"min=0"`
}

// DocumentPatch lists the metadata fields to change; nil fields are kept.
type DocumentPatch struct {
	RoomName          *string `json:"room_name"`
	OverallPermission *Level  `json:"overall_permission"`
}

// CreateResult is returned after a document and its content were stored.
type CreateResult struct {
	Message string `json:"msg"`
	RoomID  string `json:"room_id"`
}

// DeleteResult describes the rows removed by DeleteDocument. Existed reports
// whether the document row itself was present.
type DeleteResult struct {
	Existed     bool  `json:"existed"`
	Permissions int64 `json:"permissions_removed"`
	Content     int64 `json:"content_removed"`
}
