package models

// Language is a supported conversation language
type Language string

const (
	English   Language = "en"
	Spanish   Language = "es"
	Mandarin  Language = "zh"
	Cantonese Language = "yue"
)

// SupportedLanguages lists the languages a call can be held in
var SupportedLanguages = []Language{English, Spanish, Mandarin, Cantonese}

// ParseLanguage maps a language code or name to a supported language.
func ParseLanguage(s string) (Language, bool) {
	switch s {
	case "en", "en-US", "english", "English":
		return English, true
	case "es", "es-US", "es-MX", "spanish", "Spanish", "español", "espanol":
		return Spanish, true
	case "zh", "zh-CN", "cmn", "mandarin", "Mandarin", "普通话", "國語", "国语":
		return Mandarin, true
	case "yue", "zh-HK", "cantonese", "Cantonese", "廣東話", "广东话":
		return Cantonese, true
	}
	return "", false
}

type DialogState string

const (
	StateGreeting          DialogState = "GREETING"
	StateLanguageSelect    DialogState = "LANGUAGE_SELECT"
	StateTakingOrder       DialogState = "TAKING_ORDER"
	StateItemCustomization DialogState = "ITEM_CUSTOMIZATION"
	StateUpselling         DialogState = "UPSELLING"
	StateOrderReview       DialogState = "ORDER_REVIEW"
	StateCustomerInfo      DialogState = "CUSTOMER_INFO"
	StatePayment           DialogState = "PAYMENT"
	StateConfirmation      DialogState = "CONFIRMATION"
	StateClosing           DialogState = "CLOSING"
	StateErrorRecovery     DialogState = "ERROR_RECOVERY"
	StateTransferToHuman   DialogState = "TRANSFER_TO_HUMAN"
)

// Terminal reports whether no further transitions leave the state.
func (s DialogState) Terminal() bool {
	return s == StateClosing || s == StateTransferToHuman
}

type Speaker string

const (
	SpeakerCustomer  Speaker = "customer"
	SpeakerAssistant Speaker = "assistant"
)

type ConversationTurn struct {
	Speaker Speaker     `json:"speaker" firestore:"speaker"`
	Text    string      `json:"text" firestore:"text"`
	State   DialogState `json:"state" firestore:"state"`
}

// DialogContext is the state of one active call.
type DialogContext struct {
	CallID           string             `json:"call_id"`
	RestaurantID     string             `json:"restaurant_id"`
	State            DialogState        `json:"state"`
	Language         Language           `json:"language"`
	Items            []OrderItem        `json:"items"`
	CustomerPhone    string             `json:"customer_phone"`
	Subtotal         float64            `json:"subtotal"`
	History          []ConversationTurn `json:"history"`
	ErrorCount       int                `json:"error_count"`
	MaxErrors        int                `json:"max_errors"`
	UpsellOffered    bool               `json:"upsell_offered"`
	OrderConfirmed   bool               `json:"order_confirmed"`
	PaymentInitiated bool               `json:"payment_initiated"`

	// ResumeState is where recovery returns control to.
	ResumeState DialogState `json:"resume_state,omitempty"`
	// LastItemID is the menu item of the most recently added line.
	LastItemID    string            `json:"last_item_id,omitempty"`
	UpsellItemIDs []string          `json:"upsell_item_ids,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

const DefaultMaxErrors = 3

// NewDialogContext creates the context for a call that just connected.
func NewDialogContext(callID, restaurantID string, lang Language, phone string) DialogContext {
	if lang == "" {
		lang = English
	}
	return DialogContext{
		CallID:        callID,
		RestaurantID:  restaurantID,
		State:         StateGreeting,
		Language:      lang,
		CustomerPhone: phone,
		MaxErrors:     DefaultMaxErrors,
		ResumeState:   StateTakingOrder,
		Metadata:      map[string]string{},
	}
}

// Clone returns a deep copy so a transition never aliases its input.
func (c DialogContext) Clone() DialogContext {
	out := c
	out.Items = make([]OrderItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.Clone()
	}
	out.History = append([]ConversationTurn(nil), c.History...)
	out.UpsellItemIDs = append([]string(nil), c.UpsellItemIDs...)
	out.Metadata = make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	return out
}
