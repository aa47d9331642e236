package feed

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
)

// encryptForTest produces base64(AES-CBC(PKCS7(plaintext))) the way the
// upstream does before framing.
func encryptForTest(t *testing.T, key, iv []byte, plaintext string) string {
	t.Helper()

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	data := []byte(plaintext)
	pad := aes.BlockSize - len(data)%aes.BlockSize
	for i := 0; i < pad; i++ {
		data = append(data, byte(pad))
	}

	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out)
}

func TestCipherTableRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef") // AES-256
	iv := []byte("fedcba9876543210")

	table := NewCipherTable()
	if err := table.Put("H0STCNT0", "005930", hex.EncodeToString(iv), hex.EncodeToString(key)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !table.Has("H0STCNT0", "005930") {
		t.Fatal("Has = false after Put")
	}

	const frame = "0|H0STCNT0|001|005930^093000^100"
	content := encryptForTest(t, key, iv, frame)

	got, err := table.Decrypt("H0STCNT0", "005930", content)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != frame {
		t.Errorf("Decrypt = %q, want %q", got, frame)
	}
}

func TestCipherTableMissingKey(t *testing.T) {
	table := NewCipherTable()
	_, err := table.Decrypt("H0STCNT0", "005930", "aGVsbG8=")
	if !errors.Is(err, ErrNoCipherKey) {
		t.Errorf("err = %v, want ErrNoCipherKey", err)
	}
}

func TestCipherTablePutErrors(t *testing.T) {
	table := NewCipherTable()

	if err := table.Put("ch", "k", "not-hex", "00"); err == nil {
		t.Error("expected error for bad iv hex")
	}
	if err := table.Put("ch", "k", hex.EncodeToString([]byte("short")), "00"); err == nil {
		t.Error("expected error for wrong iv length")
	}
	if err := table.Put("ch", "k", hex.EncodeToString([]byte("fedcba9876543210")), "zz"); err == nil {
		t.Error("expected error for bad key hex")
	}
}

func TestCipherTableDecryptErrors(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("fedcba9876543210")

	table := NewCipherTable()
	if err := table.Put("ch", "k", hex.EncodeToString(iv), hex.EncodeToString(key)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := table.Decrypt("ch", "k", "!!not-base64!!"); err == nil {
		t.Error("expected error for bad base64")
	}

	// 5 bytes is not a block multiple.
	short := base64.StdEncoding.EncodeToString([]byte("hello"))
	if _, err := table.Decrypt("ch", "k", short); err == nil {
		t.Error("expected error for non-block-multiple ciphertext")
	}

	// Valid block, garbage padding after decrypt.
	block, _ := aes.NewCipher(key)
	raw := make([]byte, aes.BlockSize)
	garbage := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(garbage, raw)
	// Decrypting produces a trailing zero byte, which is invalid padding.
	if _, err := table.Decrypt("ch", "k", base64.StdEncoding.EncodeToString(garbage)); err == nil {
		t.Error("expected error for invalid padding")
	}
}
