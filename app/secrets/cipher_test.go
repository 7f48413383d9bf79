package secrets

import (
	"strings"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	c, err := NewCipher("correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := c.Encrypt("EAAB-page-token")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(encrypted, prefix) {
		t.Errorf("Expected prefix %q, got %q", prefix, encrypted)
	}
	if strings.Contains(encrypted, "EAAB-page-token") {
		t.Error("Expected ciphertext not to contain the plaintext")
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatal(err)
	}
	if decrypted != "EAAB-page-token" {
		t.Errorf("Expected 'EAAB-page-token', got '%s'", decrypted)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	c, err := NewCipher("key")
	if err != nil {
		t.Fatal(err)
	}

	a, _ := c.Encrypt("token")
	b, _ := c.Encrypt("token")
	if a == b {
		t.Error("Expected different ciphertexts for repeated encryption")
	}
}

func TestEmptyAndLegacyValues(t *testing.T) {
	c, err := NewCipher("key")
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := c.Encrypt("")
	if err != nil || encrypted != "" {
		t.Errorf("Expected empty string to stay empty, got %q (%v)", encrypted, err)
	}

	plain, err := c.Decrypt("mock-access-token-legacy")
	if err != nil {
		t.Fatal(err)
	}
	if plain != "mock-access-token-legacy" {
		t.Errorf("Expected unprefixed value to pass through, got '%s'", plain)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	a, _ := NewCipher("first")
	b, _ := NewCipher("second")

	encrypted, err := a.Encrypt("token")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := b.Decrypt(encrypted); err == nil {
		t.Error("Expected error when decrypting with a different key")
	}
}

func TestNewCipherRejectsEmptyPassphrase(t *testing.T) {
	if _, err := NewCipher(""); err == nil {
		t.Error("Expected error for empty passphrase")
	}
}
