package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Token format: exp_<prefix>_<secret>. The prefix is public and
// indexable; the secret is high entropy and only its bcrypt hash is ever
// persisted.
const (
	tokenFixedPrefix = "exp"
	prefixLength     = 8
	secretLength     = 32
	bcryptRounds     = 12
)

// Neither part may contain '_', the token separator.
const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// API key scopes in storage form. Wire form swaps underscores for colons.
const (
	ScopeExpensesRead  = "expenses_read"
	ScopeExpensesWrite = "expenses_write"
	ScopeAnalyticsRead = "analytics_read"
	ScopeIncomeWrite   = "income_write"
	ScopeBudgetRead    = "budget_read"
)

var knownScopes = map[string]bool{
	ScopeExpensesRead:  true,
	ScopeExpensesWrite: true,
	ScopeAnalyticsRead: true,
	ScopeIncomeWrite:   true,
	ScopeBudgetRead:    true,
}

// GeneratedApiKey is the result of issuing a key. Token and Secret are
// shown to the caller once and never stored.
type GeneratedApiKey struct {
	Token        string
	Prefix       string
	Secret       string
	HashedSecret string
}

// GenerateApiKey issues a fresh token plus the hash to persist.
func GenerateApiKey() (*GeneratedApiKey, error) {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:prefixLength]
	secret, err := randomSecret(secretLength)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	hashed, err := HashApiKeySecret(secret)
	if err != nil {
		return nil, err
	}
	return &GeneratedApiKey{
		Token:        tokenFixedPrefix + "_" + prefix + "_" + secret,
		Prefix:       prefix,
		Secret:       secret,
		HashedSecret: hashed,
	}, nil
}

func randomSecret(n int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(secretAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// ParseApiKeyToken splits a token into prefix and secret. ok is false for
// anything that does not look like exp_<prefix>_<secret>.
func ParseApiKeyToken(token string) (prefix, secret string, ok bool) {
	parts := strings.Split(token, "_")
	if len(parts) != 3 || parts[0] != tokenFixedPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// HashApiKeySecret hashes a secret for storage.
func HashApiKeySecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptRounds)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifyApiKeySecret compares a candidate secret against the stored
// hash. bcrypt's compare runs in time independent of the mismatch
// position.
func VerifyApiKeySecret(secret, hashedSecret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret)) == nil
}

// NormalizeScopes converts wire scopes (colons) to storage form and
// silently drops anything unrecognized. Unknown input fails closed,
// never escalates.
func NormalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.ReplaceAll(strings.TrimSpace(s), ":", "_")
		if knownScopes[s] {
			out = append(out, s)
		}
	}
	return out
}

// ScopesToWire converts storage scopes to their colon wire form.
func ScopesToWire(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, strings.ReplaceAll(s, "_", ":"))
	}
	return out
}

// JoinScopes serializes a scope set for the database column.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, ",")
}

// SplitScopes parses the database column back into a scope set.
func SplitScopes(stored string) []string {
	if stored == "" {
		return nil
	}
	return strings.Split(stored, ",")
}
