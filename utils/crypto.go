// File: utils/crypto.go
package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// NormalizeMac canonicalizes a MAC address to AA:BB:CC:DD:EE:FF form.
// It strips every non-hex character, uppercases, and requires exactly
// 12 hex digits. Returns an empty string for any other input.
func NormalizeMac(raw string) string {
	var hexDigits strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			hexDigits.WriteRune(r)
		}
	}
	s := hexDigits.String()
	if len(s) != 12 {
		return ""
	}
	pairs := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		pairs = append(pairs, s[i:i+2])
	}
	return strings.Join(pairs, ":")
}

// CreateClaimHmac computes the claim proof-of-possession HMAC over
// "{mac}:{firmwareVersion}:{timestampMillis}" keyed by the deployment
// HMAC key. The firmware version may be empty.
func CreateClaimHmac(key, mac, firmwareVersion string, timestampMillis int64) string {
	payload := fmt.Sprintf("%s:%s:%d", mac, firmwareVersion, timestampMillis)
	mac256 := hmac.New(sha256.New, []byte(key))
	mac256.Write([]byte(payload))
	return hex.EncodeToString(mac256.Sum(nil))
}

// VerifyClaimHmac recomputes the claim HMAC and compares it in constant
// time. Timestamp freshness is enforced by the caller, not here.
func VerifyClaimHmac(key, mac, suppliedHmac, firmwareVersion string, timestampMillis int64) bool {
	expected := CreateClaimHmac(key, mac, firmwareVersion, timestampMillis)
	return hmac.Equal([]byte(strings.ToLower(suppliedHmac)), []byte(expected))
}

// GenerateDeviceSecret returns a new random device secret. The prefix
// tags the credential type for log identifiability; it is not secret.
func GenerateDeviceSecret(prefix string, length int) (string, error) {
	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate device secret: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// GenerateClaimCode returns a 6-digit zero-padded numeric claim code.
func GenerateClaimCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate claim code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashSecret hashes a device secret with bcrypt.
func HashSecret(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// VerifySecret compares a plaintext secret against a bcrypt hash. Any
// comparison error (including a malformed stored hash) is a non-match.
func VerifySecret(plaintext, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// InstructionHash computes the deterministic content hash of a display
// instruction payload: the top-level "hash" field is removed, object
// keys are sorted recursively, the result is serialized without
// whitespace, SHA-256 hashed and prefixed with "sha256:". Both server
// and device must be able to reproduce this bit for bit.
func InstructionHash(payload any) (string, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON serializes a payload to its canonical form: top-level
// "hash" removed, object keys lexicographically sorted at every level,
// arrays kept in order, no whitespace.
func CanonicalJSON(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}
	if obj, ok := generic.(map[string]any); ok {
		delete(obj, "hash")
	}
	var b strings.Builder
	if err := writeCanonical(&b, generic); err != nil {
		return "", err
	}
	return b.String(), nil
}

// writeJSONString writes a JSON string literal without HTML escaping.
// Devices hash the payload exactly as it appears on the wire, so "&"
// must stay "&", never "&".
func writeJSONString(b *strings.Builder, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.WriteString(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSONString(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(val.String())
	case string:
		if err := writeJSONString(b, val); err != nil {
			return err
		}
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case nil:
		b.WriteString("null")
	default:
		return fmt.Errorf("unsupported value in payload: %T", v)
	}
	return nil
}
