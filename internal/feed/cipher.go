package feed

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
)

// CipherTable holds the iv/key pair negotiated per subscription, keyed by
// (channel, subscription key). Entries are written when the upstream
// acknowledges a subscription and read when decrypting its data frames;
// they never expire within a session.
type CipherTable struct {
	mu      sync.RWMutex
	entries map[string]cipherEntry
}

type cipherEntry struct {
	iv  []byte
	key []byte
}

// NewCipherTable creates an empty cipher table.
func NewCipherTable() *CipherTable {
	return &CipherTable{
		entries: make(map[string]cipherEntry),
	}
}

func cipherID(channel, trKey string) string {
	return channel + ":" + trKey
}

// Put decodes and stores the hex-encoded iv/key pair for a subscription.
func (t *CipherTable) Put(channel, trKey, ivHex, keyHex string) error {
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return fmt.Errorf("decode iv: %w", err)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return fmt.Errorf("iv length %d, want %d", len(iv), aes.BlockSize)
	}

	t.mu.Lock()
	t.entries[cipherID(channel, trKey)] = cipherEntry{iv: iv, key: key}
	t.mu.Unlock()
	return nil
}

// Has reports whether a cipher entry exists for the subscription.
func (t *CipherTable) Has(channel, trKey string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[cipherID(channel, trKey)]
	return ok
}

// Decrypt base64-decodes and AES-CBC decrypts an encrypted data frame using
// the subscription's stored iv/key. Returns ErrNoCipherKey when no entry
// exists yet (the subscribe ack may still be in flight).
func (t *CipherTable) Decrypt(channel, trKey, contentB64 string) (string, error) {
	t.mu.RLock()
	entry, ok := t.entries[cipherID(channel, trKey)]
	t.mu.RUnlock()
	if !ok {
		return "", ErrNoCipherKey
	}

	ciphertext, err := base64.StdEncoding.DecodeString(contentB64)
	if err != nil {
		return "", fmt.Errorf("decode content: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a block multiple", len(ciphertext))
	}

	block, err := aes.NewCipher(entry.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, entry.iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// pkcs7Unpad strips and validates PKCS7 padding.
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding byte")
		}
	}
	return data[:len(data)-n], nil
}
