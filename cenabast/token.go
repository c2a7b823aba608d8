package cenabast

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"strings"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// tokenBuffer keeps a safety margin so a token never expires mid-request.
	tokenBuffer = 5 * time.Minute
	// maxTokenTTL caps whatever expiry the broker claims; the integration
	// guide guarantees at most one hour.
	maxTokenTTL = time.Hour
)

const (
	TokenSourceCache     = "cache"
	TokenSourceRefresh   = "refresh"
	TokenSourceFresh     = "fresh"
	TokenSourceSimulated = "simulated"
)

type TokenInfo struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Source    string    `json:"source"`
}

type TokenOptions struct {
	ForceNew     bool
	AllowRefresh bool
	AllowFake    bool
}

type TokenStatus struct {
	HasToken       bool       `json:"has_token"`
	IsExpired      bool       `json:"is_expired"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	HoursRemaining float64    `json:"hours_remaining"`
	Message        string     `json:"message"`
}

// TokenManager holds the single shared broker token. All task kinds and all
// manual submissions go through it; there is never more than one live token.
type TokenManager struct {
	client *Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewTokenManager(client *Client) *TokenManager {
	return &TokenManager{
		client: client,
		logger: config.GetLogger(),
		now:    time.Now,
	}
}

// EffectiveExpiry clamps a claimed expiry to the guide's maximum TTL. Broker
// responses occasionally claim multi-day expiries that are not honored.
func EffectiveExpiry(now time.Time, claimed time.Time) time.Time {
	cap := now.Add(maxTokenTTL)
	if claimed.After(cap) {
		return cap
	}
	return claimed
}

// IsStale reports whether a token is already unusable, counting the buffer.
func IsStale(now time.Time, claimed time.Time) bool {
	return !EffectiveExpiry(now, claimed).Add(-tokenBuffer).After(now)
}

// GetValidToken resolves a usable token through the fallback chain:
// stored row, refresh of the stored token, fresh issuance, simulated token.
// Every network success overwrites the single stored row.
func (m *TokenManager) GetValidToken(ctx context.Context, opts TokenOptions) (*TokenInfo, error) {
	now := m.now()

	stored, err := m.readStored(ctx)
	if err != nil {
		return nil, err
	}

	if stored != nil && !opts.ForceNew && !IsStale(now, stored.ExpiresAt) {
		return &TokenInfo{Token: stored.Token, ExpiresAt: stored.ExpiresAt, Source: TokenSourceCache}, nil
	}

	if stored != nil && opts.AllowRefresh {
		if info := m.tryRefresh(ctx, stored.Token); info != nil {
			if err := m.persist(ctx, info); err != nil {
				return nil, err
			}
			return info, nil
		}
	}

	if info := m.tryFresh(ctx); info != nil {
		if err := m.persist(ctx, info); err != nil {
			return nil, err
		}
		return info, nil
	}

	if opts.AllowFake && config.AllowSimulatedToken() {
		info := m.simulated()
		m.logger.WithFields(logrus.Fields{
			"module": "cenabast",
			"source": info.Source,
		}).Warn("broker auth unavailable; using simulated token")
		if err := m.persist(ctx, info); err != nil {
			return nil, err
		}
		return info, nil
	}

	return nil, nil
}

func (m *TokenManager) tryRefresh(ctx context.Context, current string) *TokenInfo {
	outcome := m.client.Refresh(ctx, current)
	if !outcome.OK() {
		return nil
	}
	token, expiresAt, ok := m.decodeAuth(outcome, current)
	if !ok {
		return nil
	}
	return &TokenInfo{Token: token, ExpiresAt: expiresAt, Source: TokenSourceRefresh}
}

// tryFresh attempts the token endpoint first, then a credentialed login.
func (m *TokenManager) tryFresh(ctx context.Context) *TokenInfo {
	if outcome := m.client.FetchToken(ctx); outcome.OK() {
		if token, expiresAt, ok := m.decodeAuth(outcome, ""); ok {
			return &TokenInfo{Token: token, ExpiresAt: expiresAt, Source: TokenSourceFresh}
		}
	}

	user := firstEnv("MIRTH_AUTH_USER", "CENABAST_USER", "CENABAST_SERVICE_USER")
	pass := firstEnv("MIRTH_AUTH_PASSWORD", "CENABAST_PASSWORD", "CENABAST_SERVICE_PASSWORD")
	if outcome := m.client.Login(ctx, user, pass); outcome.OK() {
		if token, expiresAt, ok := m.decodeAuth(outcome, ""); ok {
			return &TokenInfo{Token: token, ExpiresAt: expiresAt, Source: TokenSourceFresh}
		}
	}
	return nil
}

func (m *TokenManager) decodeAuth(outcome Outcome, fallbackToken string) (string, time.Time, bool) {
	var auth AuthResult
	if len(outcome.Envelope.Result) > 0 {
		_ = json.Unmarshal(outcome.Envelope.Result, &auth)
	}
	if auth.AnyToken() == "" {
		_ = json.Unmarshal(outcome.Body, &auth)
	}
	token := auth.AnyToken()
	if token == "" {
		token = fallbackToken
	}
	if token == "" {
		return "", time.Time{}, false
	}
	expiresIn := auth.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int(maxTokenTTL.Seconds())
	}
	now := m.now()
	return token, EffectiveExpiry(now, now.Add(time.Duration(expiresIn)*time.Second)), true
}

func (m *TokenManager) simulated() *TokenInfo {
	return &TokenInfo{
		Token:     "dev-fake-token-" + uuid.NewString(),
		ExpiresAt: m.now().Add(maxTokenTTL),
		Source:    TokenSourceSimulated,
	}
}

func (m *TokenManager) readStored(ctx context.Context) (*models.CenabastToken, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	var row models.CenabastToken
	err := db.WithContext(ctx).Where("id = ?", 1).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(row.Token) == "" {
		return nil, nil
	}
	return &row, nil
}

func (m *TokenManager) persist(ctx context.Context, info *TokenInfo) error {
	row := models.CenabastToken{ID: 1, Token: info.Token, ExpiresAt: info.ExpiresAt}
	return config.GetDB().WithContext(ctx).Save(&row).Error
}

// Status projects the stored row without touching the network.
func (m *TokenManager) Status(ctx context.Context) (TokenStatus, error) {
	stored, err := m.readStored(ctx)
	if err != nil {
		return TokenStatus{}, err
	}
	if stored == nil {
		return TokenStatus{Message: "No hay token almacenado"}, nil
	}
	now := m.now()
	expired := IsStale(now, stored.ExpiresAt)
	effective := EffectiveExpiry(now, stored.ExpiresAt)
	remaining := math.Max(0, effective.Sub(now).Hours())
	msg := "Token vigente"
	if expired {
		msg = "Token expirado o por expirar"
	}
	return TokenStatus{
		HasToken:       true,
		IsExpired:      expired,
		ExpiresAt:      &effective,
		HoursRemaining: math.Round(remaining*100) / 100,
		Message:        msg,
	}, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
