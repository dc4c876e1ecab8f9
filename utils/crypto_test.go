package utils

import (
	"strings"
	"testing"
)

func TestNormalizeMac(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF"},
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"},
		{"aa-bb-cc-dd-ee-ff", "AA:BB:CC:DD:EE:FF"},
		{"aabbccddeeff", "AA:BB:CC:DD:EE:FF"},
		{"AaBb.CcDd.EeFf", "AA:BB:CC:DD:EE:FF"},
		{"aabbccddee", ""},
		{"aabbccddeeff00", ""},
		{"not a mac", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeMac(c.in); got != c.want {
			t.Errorf("NormalizeMac(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeMacIdempotent(t *testing.T) {
	once := NormalizeMac("aa-bb-cc-dd-ee-ff")
	if twice := NormalizeMac(once); twice != once {
		t.Errorf("NormalizeMac not idempotent: %q -> %q", once, twice)
	}
}

func TestClaimHmacRoundTrip(t *testing.T) {
	key := "test-key"
	mac := "AA:BB:CC:DD:EE:FF"
	ts := int64(1700000000000)

	sig := CreateClaimHmac(key, mac, "1.2.0", ts)
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if !VerifyClaimHmac(key, mac, sig, "1.2.0", ts) {
		t.Error("valid hmac rejected")
	}
	// Uppercase hex must still verify.
	if !VerifyClaimHmac(key, mac, strings.ToUpper(sig), "1.2.0", ts) {
		t.Error("uppercase hmac rejected")
	}
	if VerifyClaimHmac(key, mac, sig, "1.2.1", ts) {
		t.Error("hmac accepted with mutated firmware version")
	}
	if VerifyClaimHmac(key, mac, sig, "1.2.0", ts+1) {
		t.Error("hmac accepted with mutated timestamp")
	}
	if VerifyClaimHmac("other-key", mac, sig, "1.2.0", ts) {
		t.Error("hmac accepted with wrong key")
	}
}

func TestGenerateClaimCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateClaimCode()
		if err != nil {
			t.Fatalf("GenerateClaimCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in claim code %q", code)
			}
		}
	}
}

func TestGenerateDeviceSecret(t *testing.T) {
	secret, err := GenerateDeviceSecret("ds_", 64)
	if err != nil {
		t.Fatalf("GenerateDeviceSecret: %v", err)
	}
	if !strings.HasPrefix(secret, "ds_") {
		t.Errorf("missing prefix: %q", secret)
	}
	if len(secret) != 3+64 {
		t.Errorf("expected %d chars, got %d", 3+64, len(secret))
	}

	other, err := GenerateDeviceSecret("ds_", 64)
	if err != nil {
		t.Fatalf("GenerateDeviceSecret: %v", err)
	}
	if secret == other {
		t.Error("two generated secrets are identical")
	}
}

func TestHashAndVerifySecret(t *testing.T) {
	hashed, err := HashSecret("ds_deadbeef")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if !VerifySecret("ds_deadbeef", hashed) {
		t.Error("correct secret rejected")
	}
	if VerifySecret("ds_wrong", hashed) {
		t.Error("wrong secret accepted")
	}
	if VerifySecret("ds_deadbeef", "not-a-bcrypt-hash") {
		t.Error("malformed hash accepted")
	}
	if VerifySecret("ds_deadbeef", "") {
		t.Error("empty hash accepted")
	}
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	payload := map[string]any{
		"zeta":  1,
		"alpha": "x",
		"nested": map[string]any{
			"b": true,
			"a": nil,
		},
		"list": []any{3, "two", map[string]any{"y": 1, "x": 2}},
	}
	got, err := CanonicalJSON(payload)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"alpha":"x","list":[3,"two",{"x":2,"y":1}],"nested":{"a":null,"b":true},"zeta":1}`
	if got != want {
		t.Errorf("canonical form mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestCanonicalJSONStripsTopLevelHashOnly(t *testing.T) {
	payload := map[string]any{
		"hash":     "sha256:abc",
		"mainText": "hello",
		"extensions": map[string]any{
			"hash": "kept",
		},
	}
	got, err := CanonicalJSON(payload)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"extensions":{"hash":"kept"},"mainText":"hello"}`
	if got != want {
		t.Errorf("canonical form mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestCanonicalJSONPreservesNumberLiterals(t *testing.T) {
	payload := map[string]any{"a": 1.5, "b": 2, "c": -0.25}
	got, err := CanonicalJSON(payload)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"a":1.5,"b":2,"c":-0.25}`
	if got != want {
		t.Errorf("canonical form mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestCanonicalJSONDoesNotEscapeHTML(t *testing.T) {
	payload := map[string]any{
		"mainText": "BTC & ETH <now>",
		"a&b":      ">",
	}
	got, err := CanonicalJSON(payload)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	// Devices serialize with plain JSON.stringify, which keeps "&" and
	// "<" literal. The canonical form must match byte for byte.
	want := `{"a&b":">","mainText":"BTC & ETH <now>"}`
	if got != want {
		t.Errorf("canonical form mismatch:\n got %s\nwant %s", got, want)
	}
	if strings.Contains(got, `\u`) {
		t.Errorf("canonical form contains escape sequences: %s", got)
	}
}

func TestInstructionHashIgnoresHashField(t *testing.T) {
	base := map[string]any{"version": 1, "symbol": "$", "mainText": "BTC"}
	h1, err := InstructionHash(base)
	if err != nil {
		t.Fatalf("InstructionHash: %v", err)
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Fatalf("missing sha256 prefix: %q", h1)
	}

	withHash := map[string]any{"version": 1, "symbol": "$", "mainText": "BTC", "hash": h1}
	h2, err := InstructionHash(withHash)
	if err != nil {
		t.Fatalf("InstructionHash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash field influenced the content hash: %s vs %s", h1, h2)
	}

	mutated := map[string]any{"version": 1, "symbol": "$", "mainText": "ETH"}
	h3, err := InstructionHash(mutated)
	if err != nil {
		t.Fatalf("InstructionHash: %v", err)
	}
	if h3 == h1 {
		t.Error("content change did not change the hash")
	}
}
