package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestL2HeadersAt_Deterministic(t *testing.T) {
	auth := &HMACAuth{
		Key:        "key-1",
		Secret:     base64.StdEncoding.EncodeToString([]byte("super-secret")),
		Passphrase: "phrase",
	}

	h1 := auth.L2HeadersAt("0xabc", "GET", "/data/trades", "", 1700000000)
	h2 := auth.L2HeadersAt("0xabc", "GET", "/data/trades", "", 1700000000)

	for _, k := range []string{"POLY_ADDRESS", "POLY_API_KEY", "POLY_TIMESTAMP", "POLY_PASSPHRASE", "POLY_SIGNATURE"} {
		if h1[k] == "" {
			t.Errorf("missing header %s", k)
		}
		if h1[k] != h2[k] {
			t.Errorf("header %s not deterministic: %q vs %q", k, h1[k], h2[k])
		}
	}
	if h1["POLY_TIMESTAMP"] != "1700000000" {
		t.Errorf("timestamp = %s, want 1700000000", h1["POLY_TIMESTAMP"])
	}
}

func TestL2HeadersAt_SignatureCoversRequest(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: base64.StdEncoding.EncodeToString([]byte("s")), Passphrase: "p"}

	base := auth.L2HeadersAt("0xabc", "GET", "/data/trades", "", 1)
	diffPath := auth.L2HeadersAt("0xabc", "GET", "/balance-allowance", "", 1)
	diffTime := auth.L2HeadersAt("0xabc", "GET", "/data/trades", "", 2)

	if base["POLY_SIGNATURE"] == diffPath["POLY_SIGNATURE"] {
		t.Error("signature unchanged across paths")
	}
	if base["POLY_SIGNATURE"] == diffTime["POLY_SIGNATURE"] {
		t.Error("signature unchanged across timestamps")
	}
}

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	key := strings.Repeat("ab", 32) // 32 bytes of hex

	blob, err := EncryptKey("0x"+key, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != key {
		t.Errorf("round trip = %s, want %s", got, key)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
}

func TestLoadKey_RawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0xDEADBEEF", EncryptedKeyPath: "/nonexistent"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != "DEADBEEF" {
		t.Errorf("key = %s, want DEADBEEF", got)
	}
}

func TestLoadKey_NoSource(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Error("expected error when no key source is configured")
	}
}
