package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Domain prefixes for content-addressed identity. The version suffix
// allows the algorithm to change without colliding with old digests.
const (
	DomainHistory = "physutils/history/v1"
	DomainEntry   = "physutils/entry/v1"
	DomainSamples = "physutils/samples/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HistoryDigest computes a content-addressed digest of a history. Two
// histories with the same entries in the same order always share a digest,
// so replaying a document reproduces the digest of the history it was
// saved from.
func HistoryDigest(h History) (string, error) {
	arr := make(Array, len(h))
	for i, e := range h {
		arr[i] = entryValue(e)
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("HistoryDigest: %w", err)
	}
	return hashWithDomain(DomainHistory, canonical), nil
}

// EntryDigest computes a content-addressed digest of a single entry.
func EntryDigest(e Entry) (string, error) {
	canonical, err := MarshalCanonical(entryValue(e))
	if err != nil {
		return "", fmt.Errorf("EntryDigest: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

func entryValue(e Entry) Array {
	args := e.Args
	if args == nil {
		args = Object{}
	}
	return Array{String(e.Name), args}
}

// MustHistoryDigest is like HistoryDigest but panics on error.
// Use only in tests or when the history is known to be valid.
func MustHistoryDigest(h History) string {
	d, err := HistoryDigest(h)
	if err != nil {
		panic(err)
	}
	return d
}

// SamplesDigest computes a digest of a sample array from the IEEE 754 bits
// of each value, little-endian. NaN payloads and signed zeros are
// distinguished.
func SamplesDigest(samples []float64) string {
	buf := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return hashWithDomain(DomainSamples, buf)
}
