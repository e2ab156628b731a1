// Package crypto implements the hybrid key exchange: an RSA-2048 keypair
// transports the process-wide symmetric key once, after which all chat
// payloads are fernet tokens under that key.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const keypairBits = 2048

const publicKeyBlockType = "PUBLIC KEY"

// CryptoError marks a handshake or cipher failure. It is fatal to the
// handshake attempt in which it occurred; callers retry the whole exchange.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// GenerateKeypair creates a fresh RSA-2048 keypair (public exponent 65537).
func GenerateKeypair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, keypairBits)
	if err != nil {
		return nil, &CryptoError{Op: "generate keypair", Err: err}
	}
	return key, nil
}

// EncodePublicKey renders the public half as a PEM-encoded PKIX block, the
// form sent to the server's key endpoint.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, &CryptoError{Op: "encode public key", Err: err}
	}

	return pem.EncodeToMemory(&pem.Block{Type: publicKeyBlockType, Bytes: der}), nil
}

// ParsePublicKey reads a PEM-encoded PKIX RSA public key.
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &CryptoError{Op: "parse public key", Err: fmt.Errorf("no PEM block found")}
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &CryptoError{Op: "parse public key", Err: err}
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, &CryptoError{Op: "parse public key", Err: fmt.Errorf("not an RSA key")}
	}

	return pub, nil
}

// EncryptKey seals the symmetric key for one peer using RSA-OAEP with
// SHA-256 for both the hash and the mask generation function, empty label.
func EncryptKey(pub *rsa.PublicKey, symmetricKey []byte) ([]byte, error) {
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, symmetricKey, nil)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt key", Err: err}
	}
	return out, nil
}

// DecryptKey opens the sealed symmetric key with the matching private key
// and the same OAEP parameters.
func DecryptKey(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt key", Err: err}
	}
	return out, nil
}
