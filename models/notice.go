package models

import "time"

// NoticeMeta mirrors the event envelope metadata consumed by the messaging gateway.
type NoticeMeta struct {
	ID            string    `json:"id"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

type NoticeEnvelope struct {
	Meta NoticeMeta `json:"meta"`
	Data any        `json:"data"`
}

// SMSNotice is one outbound text message.
type SMSNotice struct {
	To       string         `json:"to"`
	Body     string         `json:"body"`
	Template string         `json:"template"`
	Meta     map[string]any `json:"meta,omitempty"`
}
