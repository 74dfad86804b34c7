package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/qr-vault/internal/domain"
)

// QRCodeRepository encapsulates artifact persistence.
type QRCodeRepository interface {
	Create(ctx context.Context, code *domain.QRCode) error
	ListByUser(ctx context.Context, userID string) ([]domain.QRCode, error)
}

type qrCodeRepository struct {
	pool *pgxpool.Pool
}

// NewQRCodeRepository instantiates repository.
func NewQRCodeRepository(pool *pgxpool.Pool) QRCodeRepository {
	return &qrCodeRepository{pool: pool}
}

func (r *qrCodeRepository) Create(ctx context.Context, code *domain.QRCode) error {
	const query = `
        INSERT INTO qr_codes (user_id, content)
        VALUES ($1, $2)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		code.UserID,
		code.Content,
	).Scan(&code.ID, &code.CreatedAt)
}

// ListByUser returns the user's artifacts newest first. The serial id breaks
// creation-time ties in insertion order.
func (r *qrCodeRepository) ListByUser(ctx context.Context, userID string) ([]domain.QRCode, error) {
	const query = `
        SELECT id, user_id, content, created_at
        FROM qr_codes WHERE user_id=$1
        ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.QRCode
	for rows.Next() {
		var code domain.QRCode
		if err := rows.Scan(
			&code.ID,
			&code.UserID,
			&code.Content,
			&code.CreatedAt,
		); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
