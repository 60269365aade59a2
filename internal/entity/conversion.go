package entity

import "time"

type ConversionStatus string

const (
	StatusPending    ConversionStatus = "pending"
	StatusProcessing ConversionStatus = "processing"
	StatusCompleted  ConversionStatus = "completed"
	StatusFailed     ConversionStatus = "failed"
)

type Conversion struct {
	ID           string           `json:"id"`
	Status       ConversionStatus `json:"status"`
	Theme        string           `json:"theme,omitempty"`
	Rotate       int              `json:"rotate,omitempty"`
	OriginalName string           `json:"original_name"`
	ResultPath   string           `json:"result_path,omitempty"`
	ErrorKind    ErrorKind        `json:"error_kind,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ConversionTask is the message published for asynchronous processing.
type ConversionTask struct {
	ConversionID string `json:"conversion_id"`
	Theme        string `json:"theme,omitempty"`
	Rotate       int    `json:"rotate,omitempty"`
}

// ConversionEvent is published after every processed conversion.
type ConversionEvent struct {
	ConversionID string           `json:"conversion_id"`
	Status       ConversionStatus `json:"status"`
	ErrorKind    ErrorKind        `json:"error_kind,omitempty"`
	Duration     time.Duration    `json:"duration_ns"`
	Timestamp    time.Time        `json:"timestamp"`
}

type ConversionResponse struct {
	ID        string           `json:"id"`
	Status    ConversionStatus `json:"status"`
	Theme     string           `json:"theme,omitempty"`
	ResultURL string           `json:"result_url,omitempty"`
	ErrorKind ErrorKind        `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string    `json:"error"`
	Kind  ErrorKind `json:"kind,omitempty"`
	// ID is set when the conversion record exists despite the error.
	ID string `json:"id,omitempty"`
}
