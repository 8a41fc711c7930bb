package models

import "time"

// OrderRequest represents an incoming order request.
// Name and phone rules match the storefront contract: letters and spaces
// only, exactly ten digits. Quantity is per lesson, capped at 10.
type OrderRequest struct {
	Name        string   `json:"name" validate:"required,personname"`
	PhoneNumber string   `json:"phoneNumber" validate:"required,phone10"`
	LessonIDs   []string `json:"lessonIDs" validate:"required,min=1,dive,uuid"`
	Quantity    int      `json:"quantity" validate:"required,gte=1,lte=10"`
}

// OrderItem is a single (lesson, quantity) reservation inside an order.
type OrderItem struct {
	LessonID string `json:"lessonId" db:"lesson_id"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// Order is a confirmed reservation. Orders are append-only: once created
// they are never updated or deleted, and they reference lessons by ID
// only, so later capacity changes do not touch historical orders.
type Order struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	PhoneNumber string      `json:"phoneNumber" db:"phone"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}
