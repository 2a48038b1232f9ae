package webhook

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	keyPrefix    = "crm_"
	keyPrefixLen = 12
	keyEntropy   = 32
)

var ErrAPIKeyNotFound = errors.New("webhook API key not found")

// APIKey is a tenant credential for the inbound channels. Only the hash of the
// secret is persisted.
type APIKey struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	KeyHash        string
	KeyPrefix      string
	AllowedDomains []string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// KeyStore persists API keys.
type KeyStore interface {
	Insert(ctx context.Context, key APIKey) (APIKey, error)
	FindActiveByHash(ctx context.Context, keyHash string) (APIKey, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]APIKey, error)
	Deactivate(ctx context.Context, tenantID, keyID uuid.UUID) error
}

// KeyService issues, lists, revokes and verifies webhook API keys.
type KeyService struct {
	store KeyStore
	log   *logger.Logger
}

func NewKeyService(store KeyStore, log *logger.Logger) *KeyService {
	return &KeyService{store: store, log: log}
}

// IssuedKey carries the plaintext secret, which is never readable again.
type IssuedKey struct {
	APIKey
	Secret string
}

// Issue creates a key restricted to the given origins. An empty list accepts
// any origin.
func (s *KeyService) Issue(ctx context.Context, tenantID uuid.UUID, name string, domains []string) (IssuedKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return IssuedKey{}, apperr.Validation("key name is required")
	}
	normalized, err := normalizeDomains(domains)
	if err != nil {
		return IssuedKey{}, err
	}

	secret, err := newSecret()
	if err != nil {
		return IssuedKey{}, apperr.Wrap(apperr.KindInternal, "generate API key", err)
	}
	key, err := s.store.Insert(ctx, APIKey{
		TenantID:       tenantID,
		Name:           name,
		KeyHash:        HashKey(secret),
		KeyPrefix:      secret[:keyPrefixLen],
		AllowedDomains: normalized,
		IsActive:       true,
	})
	if err != nil {
		return IssuedKey{}, fmt.Errorf("insert API key: %w", err)
	}
	s.log.Info("webhook_key_issued", "tenantId", tenantID.String(), "keyId", key.ID.String(), "prefix", key.KeyPrefix)
	return IssuedKey{APIKey: key, Secret: secret}, nil
}

func (s *KeyService) List(ctx context.Context, tenantID uuid.UUID) ([]APIKey, error) {
	return s.store.ListByTenant(ctx, tenantID)
}

func (s *KeyService) Revoke(ctx context.Context, tenantID, keyID uuid.UUID) error {
	err := s.store.Deactivate(ctx, tenantID, keyID)
	if errors.Is(err, ErrAPIKeyNotFound) {
		return apperr.NotFound("API key not found")
	}
	if err == nil {
		s.log.Info("webhook_key_revoked", "tenantId", tenantID.String(), "keyId", keyID.String())
	}
	return err
}

// Authenticate resolves a presented secret to its active key and checks the
// request origin against the key's domain list.
func (s *KeyService) Authenticate(ctx context.Context, secret, origin string) (APIKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return APIKey{}, apperr.New(apperr.KindUnauthorized, "missing API key")
	}
	key, err := s.store.FindActiveByHash(ctx, HashKey(secret))
	if errors.Is(err, ErrAPIKeyNotFound) {
		return APIKey{}, apperr.New(apperr.KindUnauthorized, "invalid API key")
	}
	if err != nil {
		return APIKey{}, apperr.Wrap(apperr.KindInternal, "API key lookup failed", err)
	}
	if len(key.AllowedDomains) > 0 && !originAllowed(origin, key.AllowedDomains) {
		return APIKey{}, apperr.New(apperr.KindForbidden, "origin not allowed").WithDetails(map[string]string{"origin": origin})
	}
	return key, nil
}

// HashKey is the lookup form of a plaintext key.
func HashKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	buf := make([]byte, keyEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

// normalizeDomains lowercases entries, strips schemes, ports and paths, and
// drops duplicates. "*" and "*.host" patterns are kept as written.
func normalizeDomains(domains []string) ([]string, error) {
	out := make([]string, 0, len(domains))
	for _, raw := range domains {
		d := strings.ToLower(strings.TrimSpace(raw))
		if d == "" {
			continue
		}
		if strings.Contains(d, "://") {
			u, err := url.Parse(d)
			if err != nil || u.Hostname() == "" {
				return nil, apperr.Validation("invalid allowed domain").WithDetails(map[string]string{"domain": raw})
			}
			d = u.Hostname()
		}
		if i := strings.IndexAny(d, "/:"); i >= 0 {
			d = d[:i]
		}
		if d == "" || strings.ContainsAny(d, " ,") {
			return nil, apperr.Validation("invalid allowed domain").WithDetails(map[string]string{"domain": raw})
		}
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// originAllowed matches the host of an Origin or Referer value. "*.host"
// covers the apex and any subdomain.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, pattern := range allowed {
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "*."):
			apex := pattern[2:]
			if host == apex || strings.HasSuffix(host, "."+apex) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}
