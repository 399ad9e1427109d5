package models

import "time"

type CallStatus string

const (
	CallInProgress  CallStatus = "in_progress"
	CallCompleted   CallStatus = "completed"
	CallTransferred CallStatus = "transferred"
	CallAbandoned   CallStatus = "abandoned"
	CallFailed      CallStatus = "failed"
)

var CallStatuses = []CallStatus{CallInProgress, CallCompleted, CallTransferred, CallAbandoned, CallFailed}

type Call struct {
	CallID          string      `json:"call_id" firestore:"callId"`
	RestaurantID    string      `json:"restaurant_id" firestore:"restaurantId"`
	CustomerPhone   string      `json:"customer_phone" firestore:"customerPhone"`
	Language        Language    `json:"language" firestore:"language"`
	Status          CallStatus  `json:"status" firestore:"status"`
	DialogState     DialogState `json:"dialog_state" firestore:"dialogState"`
	Items           []OrderItem `json:"items" firestore:"items"`
	Subtotal        float64     `json:"subtotal" firestore:"subtotal"`
	StartedAt       time.Time   `json:"started_at" firestore:"startedAt"`
	EndedAt         *time.Time  `json:"ended_at,omitempty" firestore:"endedAt"`
	DurationSeconds int64       `json:"duration_seconds" firestore:"durationSeconds"`
}

type TranscriptEntry struct {
	Speaker   Speaker     `json:"speaker" firestore:"speaker"`
	Text      string      `json:"text" firestore:"text"`
	State     DialogState `json:"state" firestore:"state"`
	CreatedAt time.Time   `json:"created_at" firestore:"createdAt"`
}

type CallFilter struct {
	RestaurantID string
	Status       CallStatus
	From         time.Time
	To           time.Time
	Page         int
	Limit        int
}

type CallPage struct {
	Calls []Call `json:"calls"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

type CallStats struct {
	Total    int64                `json:"total"`
	ByStatus map[CallStatus]int64 `json:"by_status"`
}
