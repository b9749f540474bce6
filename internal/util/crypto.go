package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Codec encrypts single field values with AES-256-GCM. Every blob embeds
// the key version it was sealed with ("v<N>:<base64 nonce+ciphertext>"),
// so decryption works without external context and keys can rotate
// without a blocking migration.
type Codec struct {
	keys   map[int][]byte
	active int
}

// NewCodec builds a codec from version -> key string. The active version
// is used for all new ciphertexts; every listed version stays decryptable.
func NewCodec(keys map[int]string, active int) (*Codec, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no encryption keys configured")
	}
	derived := make(map[int][]byte, len(keys))
	for version, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("encryption key v%d is empty", version)
		}
		derived[version] = deriveKey(key)
	}
	if _, ok := derived[active]; !ok {
		return nil, fmt.Errorf("active key version %d not in key set", active)
	}
	return &Codec{keys: derived, active: active}, nil
}

// ActiveVersion returns the key version used for new ciphertexts.
func (c *Codec) ActiveVersion() int {
	return c.active
}

// deriveKey always yields a 32 byte key regardless of configured length.
func deriveKey(keyStr string) []byte {
	sum := sha256.Sum256([]byte(keyStr))
	return sum[:]
}

// EncryptString seals a plaintext value under the active key.
func (c *Codec) EncryptString(plain string) (string, error) {
	block, err := aes.NewCipher(c.keys[c.active])
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plain), nil)
	return fmt.Sprintf("v%d:%s", c.active, base64.StdEncoding.EncodeToString(sealed)), nil
}

// DecryptString opens a blob produced by EncryptString. The embedded
// version selects the key. A corrupt blob or wrong key yields
// ErrDecryption; callers must not swallow it outside the explicit
// numeric-default path.
func (c *Codec) DecryptString(blob string) (string, error) {
	version, data, err := splitBlob(blob)
	if err != nil {
		return "", err
	}
	key, ok := c.keys[version]
	if !ok {
		return "", fmt.Errorf("%w: unknown key version %d", ErrDecryption, version)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}

	ns := aesgcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("%w: blob too short", ErrDecryption)
	}
	plain, err := aesgcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}

func splitBlob(blob string) (int, []byte, error) {
	rest, found := strings.CutPrefix(blob, "v")
	if !found {
		return 0, nil, fmt.Errorf("%w: missing version prefix", ErrDecryption)
	}
	verStr, b64, found := strings.Cut(rest, ":")
	if !found {
		return 0, nil, fmt.Errorf("%w: malformed blob", ErrDecryption)
	}
	version, err := strconv.Atoi(verStr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: malformed version", ErrDecryption)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return version, data, nil
}

// EncryptCents seals a monetary value in cents. The value is serialized
// as a decimal integer string, so the round trip is exact for all int64.
func (c *Codec) EncryptCents(cents int64) (string, error) {
	return c.EncryptString(strconv.FormatInt(cents, 10))
}

// DecryptCents opens a blob produced by EncryptCents.
func (c *Codec) DecryptCents(blob string) (int64, error) {
	plain, err := c.DecryptString(blob)
	if err != nil {
		return 0, err
	}
	cents, err := strconv.ParseInt(plain, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric plaintext", ErrDecryption)
	}
	return cents, nil
}

// DecryptCentsOr opens a numeric blob, falling back to def when the blob
// is empty or unreadable. This is the tolerance path for legacy or blank
// records; everything else must surface the error.
func (c *Codec) DecryptCentsOr(blob string, def int64) int64 {
	if blob == "" {
		return def
	}
	cents, err := c.DecryptCents(blob)
	if err != nil {
		return def
	}
	return cents
}

// RandomToken generates an n character URL safe random string.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}
