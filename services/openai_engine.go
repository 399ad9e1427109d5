package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"DineLine/models"

	"github.com/sashabaranov/go-openai"
)

const defaultChatModel = "gpt-4o-mini"

// whisperLanguages maps Whisper's reported language names to ours.
var whisperLanguages = map[string]models.Language{
	"english":   models.English,
	"spanish":   models.Spanish,
	"chinese":   models.Mandarin,
	"mandarin":  models.Mandarin,
	"cantonese": models.Cantonese,
	"en":        models.English,
	"es":        models.Spanish,
	"zh":        models.Mandarin,
	"yue":       models.Cantonese,
}

var whisperCodes = map[models.Language]string{
	models.English:   "en",
	models.Spanish:   "es",
	models.Mandarin:  "zh",
	models.Cantonese: "yue",
}

var ttsVoices = map[models.Language]openai.SpeechVoice{
	models.English:   openai.VoiceAlloy,
	models.Spanish:   openai.VoiceNova,
	models.Mandarin:  openai.VoiceShimmer,
	models.Cantonese: openai.VoiceShimmer,
}

const intentSystemPrompt = `You classify what a restaurant phone customer just said.
Reply with a single JSON object and nothing else:
{
  "intent": one of ORDER_ITEM, MODIFY_ITEM, REMOVE_ITEM, CONFIRM, DENY, READY_TO_PAY, CHANGE_LANGUAGE, ASK_MENU, REQUEST_HUMAN, GREETING, UNKNOWN,
  "confidence": number between 0 and 1,
  "entities": {
    "items": [{"name": "dish as spoken", "quantity": integer or 0 if not said, "modifications": ["preparation request"]}],
    "language": "en" | "es" | "zh" | "yue" only if the customer asks to switch language,
    "phone": "digits of a phone number if one was given",
    "payment_method": "card" | "crypto" | "cash" if one was named
  }
}
Use UNKNOWN with low confidence when the utterance is unclear.`

// OpenAIEngine classifies intents with a chat model in JSON mode and handles
// speech with Whisper and the speech endpoint.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIEngine(apiKey, model string, logger *slog.Logger) *OpenAIEngine {
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIEngine{client: openai.NewClient(apiKey), model: model, logger: logger}
}

func observe(operation string, start time.Time) {
	externalLatency.WithLabelValues("openai", operation).Observe(time.Since(start).Seconds())
}

type intentReply struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Entities   struct {
		Items         []models.ItemEntity `json:"items"`
		Language      string              `json:"language"`
		Phone         string              `json:"phone"`
		PaymentMethod string              `json:"payment_method"`
	} `json:"entities"`
}

func (o *OpenAIEngine) AnalyzeIntent(ctx context.Context, text string, dctx models.DialogContext) (models.IntentResult, error) {
	defer observe("intent", time.Now())

	user := fmt.Sprintf("Dialog state: %s\nConversation language: %s\nItems in order: %d\nCustomer said: %q",
		dctx.State, dctx.Language, len(dctx.Items), text)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: intentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return models.IntentResult{}, fmt.Errorf("error sending request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.IntentResult{}, errors.New("no valid response received")
	}

	reply, err := parseIntentReply(resp.Choices[0].Message.Content)
	if err != nil {
		o.logger.Warn("unparseable intent reply", "error", err, "content", resp.Choices[0].Message.Content)
		return models.IntentResult{}, err
	}
	result := models.IntentResult{
		Intent:     models.ParseIntent(strings.ToUpper(reply.Intent)),
		Confidence: math.Max(0, math.Min(1, reply.Confidence)),
		RawText:    text,
	}
	result.Entities.Items = reply.Entities.Items
	result.Entities.Phone = reply.Entities.Phone
	result.Entities.PaymentMethod = strings.ToLower(reply.Entities.PaymentMethod)
	if lang, ok := models.ParseLanguage(reply.Entities.Language); ok {
		result.Entities.Language = lang
	}
	return result, nil
}

func parseIntentReply(content string) (intentReply, error) {
	var reply intentReply
	if err := json.Unmarshal([]byte(cleanJSONResponse(content)), &reply); err != nil {
		return intentReply{}, fmt.Errorf("error parsing JSON: %w", err)
	}
	return reply, nil
}

func (o *OpenAIEngine) transcribe(ctx context.Context, audio []byte, lang models.Language) (openai.AudioResponse, error) {
	defer observe("transcribe", time.Now())
	return o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "turn.wav",
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: whisperCodes[lang],
	})
}

func (o *OpenAIEngine) Transcribe(ctx context.Context, audio []byte, lang models.Language) (models.Transcription, error) {
	resp, err := o.transcribe(ctx, audio, lang)
	if err != nil {
		return models.Transcription{}, fmt.Errorf("transcribe audio: %w", err)
	}
	out := models.Transcription{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: segmentConfidence(resp),
		Language:   lang,
	}
	if detected, ok := whisperLanguages[strings.ToLower(resp.Language)]; ok {
		out.Language = detected
	}
	return out, nil
}

func (o *OpenAIEngine) DetectLanguage(ctx context.Context, audio []byte) (models.LanguageDetection, error) {
	resp, err := o.transcribe(ctx, audio, "")
	if err != nil {
		return models.LanguageDetection{}, fmt.Errorf("detect language: %w", err)
	}
	lang, ok := whisperLanguages[strings.ToLower(resp.Language)]
	if !ok {
		return models.LanguageDetection{Language: models.English, Confidence: 0}, nil
	}
	return models.LanguageDetection{Language: lang, Confidence: segmentConfidence(resp)}, nil
}

// segmentConfidence turns the mean segment log-probability into a 0..1 score.
func segmentConfidence(resp openai.AudioResponse) float64 {
	if len(resp.Segments) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return 0
		}
		return 1
	}
	var sum float64
	for _, s := range resp.Segments {
		sum += s.AvgLogprob
	}
	return math.Min(1, math.Exp(sum/float64(len(resp.Segments))))
}

func (o *OpenAIEngine) Synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error) {
	defer observe("synthesize", time.Now())

	voice, ok := ttsVoices[lang]
	if !ok {
		voice = openai.VoiceAlloy
	}
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

func cleanJSONResponse(response string) string {
	// Remove markdown code block markers like ```json and ```
	re := regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	cleaned := re.ReplaceAllString(response, "$1")

	// Trim unnecessary whitespace
	return strings.TrimSpace(cleaned)
}
