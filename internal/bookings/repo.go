package bookings

import (
	"context"
	"errors"

	"github.com/angelmondragon/servicecart/pkg/enums"
	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/pagination"
	"gorm.io/gorm"
)

// Repository encapsulates booking persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a booking repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, booking *Booking) error {
	if booking == nil || booking.ID == "" {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

// FindByID returns the booking or a NOT_FOUND error.
func (r *Repository) FindByID(ctx context.Context, id string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings newest first using keyset pagination on (created_at, id).
func (r *Repository) List(ctx context.Context, params pagination.Params) (pagination.Page[Booking], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[Booking]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&Booking{})
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []Booking
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[Booking]{}, err
	}

	return pagination.Trim(rows, params.Limit, func(b Booking) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	}), nil
}

// UpdateStatus sets the status of an existing booking.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status enums.BookingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return nil
}
