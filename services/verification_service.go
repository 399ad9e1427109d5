package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	verificationCodeDigits = 6
	DefaultVerificationTTL = 10 * time.Minute
	maxPendingCodes        = 10000
)

// VerificationStore keeps issued codes until they expire or are used.
type VerificationStore interface {
	Put(key, code string)
	Get(key string) (string, bool)
	Delete(key string)
}

// LRUVerificationStore is an in-process store with a per-entry TTL.
type LRUVerificationStore struct {
	codes *expirable.LRU[string, string]
}

func NewLRUVerificationStore(ttl time.Duration) *LRUVerificationStore {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &LRUVerificationStore{codes: expirable.NewLRU[string, string](maxPendingCodes, nil, ttl)}
}

func (s *LRUVerificationStore) Put(key, code string) { s.codes.Add(key, code) }

func (s *LRUVerificationStore) Get(key string) (string, bool) { return s.codes.Get(key) }

func (s *LRUVerificationStore) Delete(key string) { s.codes.Remove(key) }

// VerificationService issues one-time codes to a phone number and checks them.
type VerificationService struct {
	store   VerificationStore
	notices NoticePublisher
	catalog *locales.Catalog
	ttl     time.Duration
	logger  *slog.Logger
}

func NewVerificationService(store VerificationStore, notices NoticePublisher, catalog *locales.Catalog, ttl time.Duration, logger *slog.Logger) *VerificationService {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &VerificationService{store: store, notices: notices, catalog: catalog, ttl: ttl, logger: logger}
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", verificationCodeDigits, n.Int64()), nil
}

// Issue stores a fresh code for phone and sends it. A newer code replaces an older one.
func (s *VerificationService) Issue(ctx context.Context, phone string, lang models.Language) error {
	code, err := newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	s.store.Put(phone, code)

	notice := models.SMSNotice{
		To: phone,
		Body: s.catalog.Format(lang, "verification_notice", map[string]string{
			"code":    code,
			"minutes": strconv.Itoa(int(s.ttl.Minutes())),
		}),
		Template: "verification_code",
	}
	if err := s.notices.Publish(ctx, notice); err != nil {
		s.logger.Error("verification notice failed", "error", err)
		noticeTotal.WithLabelValues(notice.Template, "failed").Inc()
		s.store.Delete(phone)
		return err
	}
	noticeTotal.WithLabelValues(notice.Template, "sent").Inc()
	return nil
}

// Check consumes the code for phone when it matches.
func (s *VerificationService) Check(phone, code string) error {
	want, ok := s.store.Get(phone)
	if !ok {
		return utils.ErrCodeNotFound
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
		return utils.ErrCodeMismatch
	}
	s.store.Delete(phone)
	return nil
}
