package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Completion payloads are hashed in canonical form so resubmission
// detection is independent of map iteration order, key order in the
// producer's serializer, and Unicode normalization of free-text notes.
// Two payloads with the same canonical hash are the same submission.

// payloadDomain provides domain separation for the hash. The version
// suffix enables future algorithm migration.
const payloadDomain = "coldtrack/payload/v1"

// HashPayload computes the canonical SHA-256 hash of a completion payload.
// Format: SHA256(domain + 0x00 + canonicalJSON). The null separator
// prevents domain/data boundary ambiguity.
func HashPayload(payload map[string]any) (string, error) {
	canonical, err := marshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(payloadDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MarshalPayload renders the stored JSON form of a payload: canonical key
// order and NFC-normalized strings, so the stored text round-trips to the
// same hash.
func MarshalPayload(payload map[string]any) (string, error) {
	canonical, err := marshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(canonical), nil
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return marshalCanonicalString(val)
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float64:
		// Shortest round-trip form keeps 4.2 as "4.2" regardless of the
		// producer's formatting.
		return []byte(strconv.FormatFloat(val, 'g', -1, 64)), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical payload: %T", v)
	}
}

// marshalCanonicalString produces a JSON string with NFC normalization and
// no HTML escaping (<, >, & stay literal).
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
