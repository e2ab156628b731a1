package crypto

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// DefaultTokenTTL bounds how long an encrypted payload stays decryptable.
const DefaultTokenTTL = 60 * time.Second

// Cipher wraps a fernet key: authenticated encryption with an embedded
// timestamp, so tokens expire on their own once the TTL has passed.
type Cipher struct {
	key *fernet.Key
	ttl time.Duration
}

// GenerateCipher creates a cipher around a freshly generated key. Called
// once at server start; the key lives for the process lifetime.
func GenerateCipher(ttl time.Duration) (*Cipher, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return nil, &CryptoError{Op: "generate symmetric key", Err: err}
	}
	return newCipher(&key, ttl), nil
}

// NewCipher builds a cipher from a base64-encoded key, the form the key
// travels in during the handshake. A non-positive ttl disables token
// expiry.
func NewCipher(encodedKey string, ttl time.Duration) (*Cipher, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, &CryptoError{Op: "decode symmetric key", Err: err}
	}
	return newCipher(key, ttl), nil
}

func newCipher(key *fernet.Key, ttl time.Duration) *Cipher {
	// fernet only skips the age check for negative ttls
	if ttl <= 0 {
		ttl = -1
	}
	return &Cipher{key: key, ttl: ttl}
}

// Key returns the encoded key for transport to a peer.
func (c *Cipher) Key() string {
	return c.key.Encode()
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}
	return string(tok), nil
}

// Decrypt verifies and opens a token. Tokens older than the TTL are
// rejected.
func (c *Cipher) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), c.ttl, []*fernet.Key{c.key})
	if msg == nil {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("invalid or expired token")}
	}
	return string(msg), nil
}
