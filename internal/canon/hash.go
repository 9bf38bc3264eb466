package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix allows the encoding
// to change without old fingerprints colliding with new ones.
const (
	DomainCensus   = "seanodes/census/v1"
	DomainSnapshot = "seanodes/snapshot/v1"
	DomainScenario = "seanodes/scenario/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical encoding of v under domain.
func Fingerprint(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// CensusFingerprint hashes a sorted census. Graphs with equal censuses have
// equal fingerprints whatever their node ids.
func CensusFingerprint(census []string) string {
	data, err := MarshalCanonical(Strings(census))
	if err != nil {
		// A string array always encodes.
		panic(err)
	}
	return hashWithDomain(DomainCensus, data)
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when v is known to encode.
func MustFingerprint(domain string, v any) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}
