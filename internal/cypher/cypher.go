// Package cypher holds the deterministic key derivation, fingerprinting and
// nonce-indexed stream transform under the disguise codecs. There is no
// authentication tag at this layer on purpose: decrypting with the wrong key
// yields garbage silently, and validity is asserted one layer up by the
// entropy coder refusing to decode it.
package cypher

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// DefaultSalt is the fixed protocol salt. Keys are re-derivable from a
// remembered password alone, so the salt cannot be random per user.
const DefaultSalt = "salt"

const (
	KeySize         = 32
	FingerprintSize = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// fingerprintInfo domain-separates fingerprints from anything else ever
// derived from a key.
var fingerprintInfo = []byte("stegochat key fingerprint v1")

type (
	// Key is a symmetric conversation key derived from a password.
	Key [KeySize]byte
)

// DeriveKey stretches a password into a Key with argon2id. Same inputs
// always yield the same key.
func DeriveKey(password, salt string) Key {
	var k Key
	copy(k[:], argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, KeySize))
	return k
}

// Fingerprint derives a one-way tag of the key, safe to store alongside a
// message to mark "already resolved under this key" without revealing the
// key or the password it came from.
func Fingerprint(key Key) ([]byte, error) {
	fp := make([]byte, FingerprintSize)
	h := hkdf.New(sha256.New, key[:], nil, fingerprintInfo)
	if _, err := io.ReadFull(h, fp); err != nil {
		return nil, fmt.Errorf("hkdf fingerprint: %w", err)
	}
	return fp, nil
}

// Encrypt applies the keyed stream transform to data. nonceCount is the
// message's position in its conversation; it must not repeat under one key
// within a conversation (and is only unique within one).
func Encrypt(key Key, data []byte, nonceCount uint64) ([]byte, error) {
	return transform(key, data, nonceCount)
}

// Decrypt inverts Encrypt. The transform is an XOR stream, so both
// directions are the same operation under the same nonce.
func Decrypt(key Key, data []byte, nonceCount uint64) ([]byte, error) {
	return transform(key, data, nonceCount)
}

func transform(key Key, data []byte, nonceCount uint64) ([]byte, error) {
	var nonce [chacha20.NonceSize]byte
	binary.BigEndian.PutUint64(nonce[chacha20.NonceSize-8:], nonceCount)

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("chacha20: %w", err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}
