package models

type Intent string

const (
	IntentOrderItem      Intent = "ORDER_ITEM"
	IntentModifyItem     Intent = "MODIFY_ITEM"
	IntentRemoveItem     Intent = "REMOVE_ITEM"
	IntentConfirm        Intent = "CONFIRM"
	IntentDeny           Intent = "DENY"
	IntentReadyToPay     Intent = "READY_TO_PAY"
	IntentChangeLanguage Intent = "CHANGE_LANGUAGE"
	IntentAskMenu        Intent = "ASK_MENU"
	IntentRequestHuman   Intent = "REQUEST_HUMAN"
	IntentGreeting       Intent = "GREETING"
	IntentUnknown        Intent = "UNKNOWN"
)

// ParseIntent maps a classifier label to an intent, UNKNOWN if unrecognized.
func ParseIntent(s string) Intent {
	switch i := Intent(s); i {
	case IntentOrderItem, IntentModifyItem, IntentRemoveItem, IntentConfirm, IntentDeny,
		IntentReadyToPay, IntentChangeLanguage, IntentAskMenu, IntentRequestHuman, IntentGreeting:
		return i
	}
	return IntentUnknown
}

// ItemEntity is a menu item mentioned by the caller.
type ItemEntity struct {
	Name          string   `json:"name"`
	Quantity      int      `json:"quantity,omitempty"`
	Modifications []string `json:"modifications,omitempty"`
}

type IntentEntities struct {
	Items         []ItemEntity `json:"items,omitempty"`
	Language      Language     `json:"language,omitempty"`
	Confirmation  *bool        `json:"confirmation,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	PaymentMethod string       `json:"payment_method,omitempty"`
}

type IntentResult struct {
	Intent     Intent         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   IntentEntities `json:"entities"`
	RawText    string         `json:"raw_text"`
}

const MinIntentConfidence = 0.5

// Understood reports whether the turn counts as a successful classification.
func (r IntentResult) Understood() bool {
	return r.Intent != IntentUnknown && r.Confidence >= MinIntentConfidence
}

type Transcription struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Language   Language `json:"language,omitempty"`
}

type LanguageDetection struct {
	Language   Language `json:"language"`
	Confidence float64  `json:"confidence"`
}
