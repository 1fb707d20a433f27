package bookings

import (
	"time"

	"github.com/angelmondragon/servicecart/internal/cart"
	"github.com/angelmondragon/servicecart/pkg/enums"
)

// Booking is a stored consultation request together with the cart it was submitted with.
type Booking struct {
	ID            string              `gorm:"column:id;primaryKey" json:"id"`
	VisitorID     string              `gorm:"column:visitor_id" json:"-"`
	Name          string              `gorm:"column:name" json:"name"`
	Email         string              `gorm:"column:email" json:"email"`
	Company       string              `gorm:"column:company" json:"company,omitempty"`
	Phone         string              `gorm:"column:phone" json:"phone,omitempty"`
	PreferredDate *time.Time          `gorm:"column:preferred_date" json:"preferredDate,omitempty"`
	Message       string              `gorm:"column:message" json:"message,omitempty"`
	Items         []cart.LineItem     `gorm:"column:items;serializer:json" json:"items"`
	SubtotalCents int64               `gorm:"column:subtotal_cents" json:"subtotalCents"`
	Status        enums.BookingStatus `gorm:"column:status" json:"status"`
	CreatedAt     time.Time           `gorm:"column:created_at" json:"createdAt"`
}

func (Booking) TableName() string { return "bookings" }

// CreateInput is the "book a call" form.
type CreateInput struct {
	Name          string     `json:"name" validate:"required,min=2,max=120"`
	Email         string     `json:"email" validate:"required,email,max=254"`
	Company       string     `json:"company" validate:"max=120"`
	Phone         string     `json:"phone" validate:"max=40"`
	PreferredDate *time.Time `json:"preferredDate"`
	Message       string     `json:"message" validate:"max=2000"`
}

// StatusInput changes a booking's follow-up status.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}
