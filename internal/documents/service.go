package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/inkroom/inkroom/internal/shared"
)

// RepositoryPort defines data access methods for documents.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetDocument(ctx context.Context, roomID string) (Document, error)
	GetContent(ctx context.Context, roomID string) (string, error)
	UpdateContent(ctx context.Context, roomID, content string) (bool, error)
	ListDocuments(ctx context.Context, ownerID string) ([]Summary, error)
	UpdateVisibility(ctx context.Context, roomID string, level Level) (bool, error)
	RenameDocument(ctx context.Context, roomID, roomName string) (bool, error)

	GrantPermission(ctx context.Context, roomID, userID string, level Level) error
	RevokePermission(ctx context.Context, roomID, userID string) (bool, error)
	ChangePermission(ctx context.Context, roomID, userID string, level Level) (bool, error)
}

// StoreObserver receives the outcome of every store operation.
type StoreObserver interface {
	ObserveStore(op string, err error)
}

// ServiceConfig carries optional collaborators of the Service.
type ServiceConfig struct {
	Cache    *ContentCache
	Logger   *slog.Logger
	Observer StoreObserver
	Now      func() time.Time
	NewID    func() string
}

// Service validates input and orchestrates the document repository.
type Service struct {
	repo     RepositoryPort
	cache    *ContentCache
	logger   *slog.Logger
	observer StoreObserver
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	s := &Service{
		repo:     repo,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      cfg.Now,
		newID:    cfg.NewID,
	}
	s.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// NormalizeRoomName trims surrounding space and applies Unicode NFC so that
// visually identical names compare equal.
func NormalizeRoomName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ============================================================================
// CONTENT
// ============================================================================

// CreateDocument stores the document row and its content row in one
// transaction; either both exist afterwards or neither does.
func (s *Service) CreateDocument(ctx context.Context, in CreateDocumentInput) (result CreateResult, err error) {
	defer func() { s.finish("create_document", in.RoomID, err) }()

	in.RoomID = strings.TrimSpace(in.RoomID)
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.RoomName = NormalizeRoomName(in.RoomName)
	if err := s.validateStruct(in); err != nil {
		return CreateResult{}, err
	}
	if in.RoomID == "" {
		in.RoomID = s.newID()
	}
	if in.CreateTime.IsZero() {
		in.CreateTime = s.now()
	}

	doc := Document{
		RoomID:            in.RoomID,
		RoomName:          in.RoomName,
		CreateTime:        in.CreateTime.UTC(),
		OverallPermission: in.OverallPermission,
		OwnerID:           in.OwnerID,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertDocument(ctx, doc); err != nil {
			return err
		}
		return tx.InsertContent(ctx, doc.RoomID, in.Content)
	})
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Message: "document created", RoomID: doc.RoomID}, nil
}

// GetContent returns the content of a room, reading through the cache.
func (s *Service) GetContent(ctx context.Context, roomID string) (content string, err error) {
	defer func() { s.finish("get_content", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return "", err
	}
	return s.cache.Fetch(ctx, roomID, func(ctx context.Context) (string, error) {
		return s.repo.GetContent(ctx, roomID)
	})
}

// UpdateContent overwrites the content of a room. It reports false, without
// error, when the room has no content.
func (s *Service) UpdateContent(ctx context.Context, roomID, content string) (updated bool, err error) {
	defer func() { s.finish("update_content", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return false, err
	}
	updated, err = s.repo.UpdateContent(ctx, roomID, content)
	if err != nil {
		return false, err
	}
	if updated {
		s.invalidate(ctx, roomID)
	}
	return updated, nil
}

// ============================================================================
// DOCUMENTS
// ============================================================================

// GetDocument returns the metadata of a room.
func (s *Service) GetDocument(ctx context.Context, roomID string) (doc Document, err error) {
	defer func() { s.finish("get_document", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return Document{}, err
	}
	return s.repo.GetDocument(ctx, roomID)
}

// ListDocuments returns the documents owned by ownerID with their sharing lists.
func (s *Service) ListDocuments(ctx context.Context, ownerID string) (summaries []Summary, err error) {
	defer func() { s.finish("list_documents", "", err) }()

	if ownerID, err = s.normalizeID("owner_id", ownerID); err != nil {
		return nil, err
	}
	summaries, err = s.repo.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	return summaries, nil
}

// UpdateVisibility sets the overall permission level of a room.
func (s *Service) UpdateVisibility(ctx context.Context, roomID string, level Level) (updated bool, err error) {
	defer func() { s.finish("update_visibility", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return false, err
	}
	if err := s.validateLevel(level); err != nil {
		return false, err
	}
	return s.repo.UpdateVisibility(ctx, roomID, level)
}

// RenameDocument changes the name of a room.
func (s *Service) RenameDocument(ctx context.Context, roomID, roomName string) (updated bool, err error) {
	defer func() { s.finish("rename_document", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return false, err
	}
	roomName = NormalizeRoomName(roomName)
	if err := s.validate.Var(roomName, "required,max=255"); err != nil {
		return false, invalidInput("room_name", err)
	}
	return s.repo.RenameDocument(ctx, roomID, roomName)
}

// UpdateDocument applies the set fields of patch in one transaction. Both
// fields are validated before anything is written. It reports false when the
// room does not exist.
func (s *Service) UpdateDocument(ctx context.Context, roomID string, patch DocumentPatch) (updated bool, err error) {
	defer func() { s.finish("update_document", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return false, err
	}
	if patch.RoomName == nil && patch.OverallPermission == nil {
		return false, fmt.Errorf("%w: room_name or overall_permission required", shared.ErrInvalidInput)
	}
	if patch.RoomName != nil {
		name := NormalizeRoomName(*patch.RoomName)
		if err := s.validate.Var(name, "required,max=255"); err != nil {
			return false, invalidInput("room_name", err)
		}
		patch.RoomName = &name
	}
	if patch.OverallPermission != nil {
		if err := s.validateLevel(*patch.OverallPermission); err != nil {
			return false, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if patch.RoomName != nil {
			ok, err := tx.RenameDocument(ctx, roomID, *patch.RoomName)
			if err != nil || !ok {
				return err
			}
		}
		if patch.OverallPermission != nil {
			ok, err := tx.UpdateVisibility(ctx, roomID, *patch.OverallPermission)
			if err != nil || !ok {
				return err
			}
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

// DeleteDocument removes the permissions, the content and the document row of
// a room in one transaction.
func (s *Service) DeleteDocument(ctx context.Context, roomID string) (result DeleteResult, err error) {
	defer func() { s.finish("delete_document", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return DeleteResult{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if result.Permissions, err = tx.DeletePermissions(ctx, roomID); err != nil {
			return err
		}
		if result.Content, err = tx.DeleteContent(ctx, roomID); err != nil {
			return err
		}
		result.Existed, err = tx.DeleteDocument(ctx, roomID)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.invalidate(ctx, roomID)
	s.logger.Debug("document deleted",
		slog.String("room_id", roomID),
		slog.Bool("existed", result.Existed),
		slog.Int64("permissions", result.Permissions),
		slog.Int64("content", result.Content),
	)
	return result, nil
}

// ============================================================================
// PERMISSIONS
// ============================================================================

// GrantPermission gives userID the level on roomID, replacing any previous level.
func (s *Service) GrantPermission(ctx context.Context, roomID, userID string, level Level) (err error) {
	defer func() { s.finish("grant_permission", roomID, err) }()

	if roomID, userID, err = s.normalizePair(roomID, userID); err != nil {
		return err
	}
	if err := s.validateLevel(level); err != nil {
		return err
	}
	return s.repo.GrantPermission(ctx, roomID, userID, level)
}

// RevokePermission removes the permission of userID on roomID.
func (s *Service) RevokePermission(ctx context.Context, roomID, userID string) (removed bool, err error) {
	defer func() { s.finish("revoke_permission", roomID, err) }()

	if roomID, err = s.normalizeID("room_id", roomID); err != nil {
		return false, err
	}
	if userID, err = s.normalizeID("user_id", userID); err != nil {
		return false, err
	}
	return s.repo.RevokePermission(ctx, roomID, userID)
}

// ChangePermission updates an existing permission; it never creates one.
func (s *Service) ChangePermission(ctx context.Context, roomID, userID string, level Level) (updated bool, err error) {
	defer func() { s.finish("change_permission", roomID, err) }()

	if roomID, userID, err = s.normalizePair(roomID, userID); err != nil {
		return false, err
	}
	if err := s.validateLevel(level); err != nil {
		return false, err
	}
	return s.repo.ChangePermission(ctx, roomID, userID, level)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Service) invalidate(ctx context.Context, roomID string) {
	if err := s.cache.Invalidate(ctx, roomID); err != nil {
		s.logger.Warn("content cache invalidate", slog.String("room_id", roomID), slog.Any("error", err))
	}
}

func (s *Service) finish(op, roomID string, err error) {
	if s.observer != nil {
		s.observer.ObserveStore(op, err)
	}
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrAlreadyExists):
		s.logger.Debug("document operation rejected", slog.String("op", op), slog.String("room_id", roomID), slog.Any("error", err))
	default:
		s.logger.Error("document operation failed", slog.String("op", op), slog.String("room_id", roomID), slog.Any("error", err))
	}
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return invalidInput("", err)
	}
	return nil
}

// normalizeID trims value and checks it is a usable key.
func (s *Service) normalizeID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if err := s.validate.Var(value, "required,max=128"); err != nil {
		return value, invalidInput(field, err)
	}
	return value, nil
}

func (s *Service) validateLevel(level Level) error {
	if err := s.validate.Var(level, "min=0"); err != nil {
		return invalidInput("permission", err)
	}
	return nil
}

func (s *Service) normalizePair(roomID, userID string) (string, string, error) {
	roomID, err := s.normalizeID("room_id", roomID)
	if err != nil {
		return roomID, userID, err
	}
	userID, err = s.normalizeID("user_id", userID)
	return roomID, userID, err
}

// invalidInput flattens validator errors into a shared.ErrInvalidInput.
func invalidInput(field string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		msg := name + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidInput, strings.Join(msgs, "; "))
}
