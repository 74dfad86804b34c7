package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/spec-kit/qr-vault/internal/domain"
	"github.com/spec-kit/qr-vault/internal/events"
	"github.com/spec-kit/qr-vault/internal/repository"
	apperrors "github.com/spec-kit/qr-vault/pkg/util"
)

// QRService generates QR artifacts and serves per-user history.
type QRService struct {
	codes      repository.QRCodeRepository
	dispatcher events.Dispatcher
	imageSize  int
}

// NewQRService constructs the service.
func NewQRService(codes repository.QRCodeRepository, dispatcher events.Dispatcher, imageSize int) *QRService {
	if imageSize <= 0 {
		imageSize = 256
	}
	return &QRService{codes: codes, dispatcher: dispatcher, imageSize: imageSize}
}

// Issue encodes content as a PNG QR image and records it against the user.
// The durable record is written before the bytes are handed back: an image
// without a row would vanish from the only history the user has, so a failed
// insert fails the whole issuance.
func (s *QRService) Issue(ctx context.Context, user *domain.User, content string) (*domain.QRCode, []byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, apperrors.NewValidationError("content is required", nil)
	}

	png, err := qrcode.Encode(content, qrcode.Medium, s.imageSize)
	if err != nil {
		return nil, nil, apperrors.NewValidationError("content cannot be encoded", map[string]any{
			"reason": err.Error(),
		})
	}

	code := &domain.QRCode{
		UserID:  user.ID,
		Content: content,
	}
	if err := s.codes.Create(ctx, code); err != nil {
		return nil, nil, apperrors.NewStorageError(err)
	}

	s.publishGenerated(ctx, user.ID, code.ID, len(png), len(content))
	return code, png, nil
}

// ListFor returns the user's artifacts newest first. Snapshot read: the
// slice is complete at return and does not follow later inserts.
func (s *QRService) ListFor(ctx context.Context, userID string) ([]domain.QRCode, error) {
	codes, err := s.codes.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return codes, nil
}

func (s *QRService) publishGenerated(ctx context.Context, userID string, codeID int64, sizeBytes, contentLen int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventQRGenerated,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload: events.QRGeneratedPayload{
			QRCodeID:   codeID,
			SizeBytes:  sizeBytes,
			ContentLen: contentLen,
		},
	})
}
