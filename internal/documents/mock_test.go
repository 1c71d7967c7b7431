package documents

import (
	"context"
	"sort"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type permKey struct {
	roomID string
	userID string
}

type mockUser struct {
	name  string
	email string
}

type mockState struct {
	documents   map[string]Document
	content     map[string]string
	permissions map[permKey]Level
}

func (s mockState) clone() mockState {
	out := mockState{
		documents:   make(map[string]Document, len(s.documents)),
		content:     make(map[string]string, len(s.content)),
		permissions: make(map[permKey]Level, len(s.permissions)),
	}
	for k, v := range s.documents {
		out.documents[k] = v
	}
	for k, v := range s.content {
		out.content[k] = v
	}
	for k, v := range s.permissions {
		out.permissions[k] = v
	}
	return out
}

type mockRepository struct {
	mockState
	users map[string]mockUser

	// Error injection
	txError            error
	insertContentError error
	deleteContentError error
	listError          error
	getContentError    error

	updateVisibilityError error

	getContentCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		mockState: mockState{
			documents:   make(map[string]Document),
			content:     make(map[string]string),
			permissions: make(map[permKey]Level),
		},
		users: make(map[string]mockUser),
	}
}

func (m *mockRepository) addUser(id, name, email string) {
	m.users[id] = mockUser{name: name, email: email}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	snapshot := m.mockState.clone()
	if err := fn(ctx, &mockTxRepo{mock: m}); err != nil {
		m.mockState = snapshot
		return err
	}
	return nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) InsertDocument(ctx context.Context, doc Document) error {
	if _, ok := t.mock.documents[doc.RoomID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := t.mock.users[doc.OwnerID]; !ok {
		return ErrUnknownUser
	}
	t.mock.documents[doc.RoomID] = doc
	return nil
}

func (t *mockTxRepo) InsertContent(ctx context.Context, roomID, content string) error {
	if t.mock.insertContentError != nil {
		return t.mock.insertContentError
	}
	if _, ok := t.mock.documents[roomID]; !ok {
		return ErrNotFound
	}
	if _, ok := t.mock.content[roomID]; ok {
		return ErrAlreadyExists
	}
	t.mock.content[roomID] = content
	return nil
}

func (t *mockTxRepo) DeletePermissions(ctx context.Context, roomID string) (int64, error) {
	var n int64
	for key := range t.mock.permissions {
		if key.roomID == roomID {
			delete(t.mock.permissions, key)
			n++
		}
	}
	return n, nil
}

func (t *mockTxRepo) DeleteContent(ctx context.Context, roomID string) (int64, error) {
	if t.mock.deleteContentError != nil {
		return 0, t.mock.deleteContentError
	}
	if _, ok := t.mock.content[roomID]; !ok {
		return 0, nil
	}
	delete(t.mock.content, roomID)
	return 1, nil
}

func (t *mockTxRepo) DeleteDocument(ctx context.Context, roomID string) (bool, error) {
	if _, ok := t.mock.documents[roomID]; !ok {
		return false, nil
	}
	delete(t.mock.documents, roomID)
	return true, nil
}

func (t *mockTxRepo) RenameDocument(ctx context.Context, roomID, roomName string) (bool, error) {
	return t.mock.RenameDocument(ctx, roomID, roomName)
}

func (t *mockTxRepo) UpdateVisibility(ctx context.Context, roomID string, level Level) (bool, error) {
	if t.mock.updateVisibilityError != nil {
		return false, t.mock.updateVisibilityError
	}
	return t.mock.UpdateVisibility(ctx, roomID, level)
}

func (m *mockRepository) GetDocument(ctx context.Context, roomID string) (Document, error) {
	doc, ok := m.documents[roomID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *mockRepository) GetContent(ctx context.Context, roomID string) (string, error) {
	m.getContentCalls++
	if m.getContentError != nil {
		return "", m.getContentError
	}
	content, ok := m.content[roomID]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

func (m *mockRepository) UpdateContent(ctx context.Context, roomID, content string) (bool, error) {
	if _, ok := m.content[roomID]; !ok {
		return false, nil
	}
	m.content[roomID] = content
	return true, nil
}

// ListDocuments emulates the owner join: one row per listed grant, or a
// single NULL-grant row for documents without one.
func (m *mockRepository) ListDocuments(ctx context.Context, ownerID string) ([]Summary, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var docs []Document
	for _, doc := range m.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreateTime.After(docs[j].CreateTime) })

	var rows []listRow
	for _, doc := range docs {
		base := listRow{
			RoomID:            doc.RoomID,
			RoomName:          doc.RoomName,
			CreateTime:        doc.CreateTime,
			OverallPermission: int16(doc.OverallPermission),
		}
		matched := false
		for key, level := range m.permissions {
			if key.roomID != doc.RoomID || !listed(level) {
				continue
			}
			row := base
			userID, code := key.userID, int16(level)
			row.PermUserID, row.Permission = &userID, &code
			if u, ok := m.users[userID]; ok {
				name, email := u.name, u.email
				row.UserName, row.Email = &name, &email
			}
			rows = append(rows, row)
			matched = true
		}
		if !matched {
			rows = append(rows, base)
		}
	}
	return groupSummaries(rows), nil
}

func listed(level Level) bool {
	for _, l := range ListedLevels {
		if l == level {
			return true
		}
	}
	return false
}

func (m *mockRepository) UpdateVisibility(ctx context.Context, roomID string, level Level) (bool, error) {
	doc, ok := m.documents[roomID]
	if !ok {
		return false, nil
	}
	doc.OverallPermission = level
	m.documents[roomID] = doc
	return true, nil
}

func (m *mockRepository) RenameDocument(ctx context.Context, roomID, roomName string) (bool, error) {
	doc, ok := m.documents[roomID]
	if !ok {
		return false, nil
	}
	doc.RoomName = roomName
	m.documents[roomID] = doc
	return true, nil
}

func (m *mockRepository) GrantPermission(ctx context.Context, roomID, userID string, level Level) error {
	if _, ok := m.documents[roomID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.users[userID]; !ok {
		return ErrUnknownUser
	}
	m.permissions[permKey{roomID, userID}] = level
	return nil
}

func (m *mockRepository) RevokePermission(ctx context.Context, roomID, userID string) (bool, error) {
	key := permKey{roomID, userID}
	if _, ok := m.permissions[key]; !ok {
		return false, nil
	}
	delete(m.permissions, key)
	return true, nil
}

func (m *mockRepository) ChangePermission(ctx context.Context, roomID, userID string, level Level) (bool, error) {
	key := permKey{roomID, userID}
	if _, ok := m.permissions[key]; !ok {
		return false, nil
	}
	m.permissions[key] = level
	return true, nil
}

type recordingObserver struct {
	ops []string
}

func (o *recordingObserver) ObserveStore(op string, err error) {
	o.ops = append(o.ops, op)
}
