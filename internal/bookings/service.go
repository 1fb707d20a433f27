package bookings

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/angelmondragon/servicecart/internal/cart"
	"github.com/angelmondragon/servicecart/pkg/enums"
	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/logger"
	"github.com/angelmondragon/servicecart/pkg/metrics"
	"github.com/angelmondragon/servicecart/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CartProvider resolves a visitor's cart. cart.Registry satisfies it.
type CartProvider interface {
	Get(ctx context.Context, visitorID string) (*cart.Store, error)
}

type bookingStore interface {
	Create(ctx context.Context, booking *Booking) error
	FindByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[Booking], error)
	UpdateStatus(ctx context.Context, id string, status enums.BookingStatus) error
}

// ServiceParams groups dependencies for the booking service.
type ServiceParams struct {
	Repo    bookingStore
	Carts   CartProvider
	IDs     cart.IDGenerator
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
	Now     func() time.Time
}

type Service struct {
	repo    bookingStore
	carts   CartProvider
	ids     cart.IDGenerator
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	now     func() time.Time
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart provider required")
	}
	if params.IDs == nil {
		params.IDs = cart.TimeOrderedIDs{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		repo:    params.Repo,
		carts:   params.Carts,
		ids:     params.IDs,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     params.Now,
	}, nil
}

// Create validates the form, stores it with a snapshot of the visitor's cart and then clears
// the cart. The snapshot and the clear happen without another cart mutation in between; the
// cart is left untouched when the booking cannot be stored.
func (s *Service) Create(ctx context.Context, visitorID string, input CreateInput) (*Booking, error) {
	input = normalizeInput(input)
	if err := s.validateInput(input); err != nil {
		s.metrics.IncBooking("invalid")
		return nil, err
	}

	store, err := s.carts.Get(ctx, visitorID)
	if err != nil {
		s.metrics.IncBooking("failed")
		return nil, err
	}

	var booking *Booking
	err = store.ClearAfter(ctx, func(items []cart.LineItem, subtotal decimal.Decimal) error {
		booking = &Booking{
			ID:            s.ids.NewID(),
			VisitorID:     visitorID,
			Name:          input.Name,
			Email:         input.Email,
			Company:       input.Company,
			Phone:         input.Phone,
			PreferredDate: input.PreferredDate,
			Message:       input.Message,
			Items:         items,
			SubtotalCents: subtotal.Shift(2).Round(0).IntPart(),
			Status:        enums.BookingStatusPending,
			CreatedAt:     s.now().UTC(),
		}
		return s.repo.Create(ctx, booking)
	})
	if err != nil {
		s.metrics.IncBooking("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store booking")
	}
	s.metrics.IncBooking("created")

	ctx = s.logg.WithFields(ctx, map[string]any{
		"booking_id":     booking.ID,
		"item_count":     len(booking.Items),
		"subtotal_cents": booking.SubtotalCents,
	})
	s.logg.Info(ctx, "booking.created")
	return booking, nil
}

// Get returns a single booking.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

// List returns bookings newest first. Limits are clamped to [1, 100]; zero means 25.
func (s *Service) List(ctx context.Context, params pagination.Params) (pagination.Page[Booking], error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	return s.repo.List(ctx, params)
}

// UpdateStatus moves a booking to a new follow-up status.
func (s *Service) UpdateStatus(ctx context.Context, id string, input StatusInput) (*Booking, error) {
	status, err := enums.ParseBookingStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking status")
	}
	id = strings.TrimSpace(id)
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking status")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) validateInput(input CreateInput) error {
	if err := validate.Struct(input); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	if input.PreferredDate != nil {
		today := s.now().UTC().Truncate(24 * time.Hour)
		if input.PreferredDate.UTC().Before(today) {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"preferredDate": "must not be in the past"})
		}
	}
	return nil
}

func normalizeInput(input CreateInput) CreateInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Company = strings.TrimSpace(input.Company)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Message = strings.TrimSpace(input.Message)
	return input
}
