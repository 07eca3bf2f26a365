package model

type (
	// Envelope wraps a message for relay transport. The relay routes on
	// From/To only; the payload it carries is already disguised text.
	Envelope struct {
		From    string  `json:"from" validate:"required"`
		To      string  `json:"to" validate:"required"`
		Message Message `json:"message" validate:"required"`
	}
)
