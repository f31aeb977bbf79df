package model

import "time"

// FlashLevel is the severity of a flash message.
type FlashLevel string

const (
	FlashInfo    FlashLevel = "info"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "danger"
)

// FlashMessage is a non-fatal notice surfaced to the user, such as a
// content that could not be loaded while merging a live event.
type FlashMessage struct {
	// ID is the unique identifier for this message.
	ID string `json:"id" db:"id"`

	Level FlashLevel `json:"level" db:"level"`

	// Message is the human-readable text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has dismissed the message.
	Read bool `json:"read" db:"read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
