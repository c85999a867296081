package bux

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign computes the gateway callback signature for a request id and status.
// The digest input is the literal concatenation req_id + status + "{" +
// apiSecret + "}", braces included; the gateway reproduces this framing
// bit-for-bit, so it must not change.
func Sign(reqID, status, apiSecret string) string {
	sum := sha1.Sum([]byte(reqID + status + "{" + apiSecret + "}"))
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether the presented signature matches the
// expected digest. Comparison is constant time; surrounding whitespace on the
// presented value is ignored.
func VerifySignature(reqID, status, apiSecret, presented string) bool {
	expected := Sign(reqID, status, apiSecret)
	candidate := strings.TrimSpace(presented)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
