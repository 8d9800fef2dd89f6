package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"tikiti/internal/models"
)

// CouponRepository handles coupon data operations
type CouponRepository struct {
	db *sql.DB
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// GetByCode retrieves a coupon by code, including its event restrictions
func (r *CouponRepository) GetByCode(code string) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	err := r.db.QueryRow(`
		SELECT id, code, discount_type, value, usage_limit, per_user_limit,
			expires_at, used_count, created_at
		FROM coupons
		WHERE code = ?`, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountType,
		&coupon.Value,
		&coupon.UsageLimit,
		&coupon.PerUserLimit,
		&coupon.ExpiresAt,
		&coupon.UsedCount,
		&coupon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	rows, err := r.db.Query("SELECT event_id FROM coupon_events WHERE coupon_id = ?", coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int
		if err := rows.Scan(&eventID); err != nil {
			return nil, fmt.Errorf("failed to scan coupon event: %w", err)
		}
		coupon.EventIDs = append(coupon.EventIDs, eventID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupon events: %w", err)
	}

	return coupon, nil
}

// Create persists a coupon with optional event restrictions. Used by the
// organizer tooling and test fixtures.
func (r *CouponRepository) Create(coupon *models.Coupon) error {
	if err := coupon.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO coupons (code, discount_type, value, usage_limit, per_user_limit, expires_at, used_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		coupon.Code, coupon.DiscountType, coupon.Value,
		coupon.UsageLimit, coupon.PerUserLimit, coupon.ExpiresAt, coupon.UsedCount)
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get coupon id: %w", err)
	}
	coupon.ID = int(id)

	for _, eventID := range coupon.EventIDs {
		if _, err := tx.Exec(
			"INSERT INTO coupon_events (coupon_id, event_id) VALUES (?, ?)",
			coupon.ID, eventID); err != nil {
			return fmt.Errorf("failed to restrict coupon to event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit coupon creation: %w", err)
	}

	return nil
}
