package domain

import "time"

// NotificationLevel distinguishes success toasts from error toasts
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-facing message emitted by the cart store
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	ProductID int64             `json:"product_id"`
	CreatedAt time.Time         `json:"created_at"`
}
