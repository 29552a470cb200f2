package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 12 hex characters, for logs and reports.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Domain-specific hash types
type (
	InputHash   Hash
	OptionsHash Hash
)

func (h InputHash) String() string   { return Hash(h).String() }
func (h OptionsHash) String() string { return Hash(h).String() }

// ComputeMatrixHash hashes a row-major matrix bit-exactly, shape included.
func ComputeMatrixHash(rows, cols int, data []float64) Hash {
	buf := make([]byte, 16+8*len(data))
	binary.LittleEndian.PutUint64(buf[0:], uint64(rows))
	binary.LittleEndian.PutUint64(buf[8:], uint64(cols))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[16+8*i:], math.Float64bits(v))
	}
	return NewHash(buf)
}

// ComputeInputHash combines component hashes in the order given.
func ComputeInputHash(parts ...Hash) InputHash {
	var data strings.Builder
	for _, p := range parts {
		data.WriteString(string(p))
		data.WriteByte('|')
	}
	return InputHash(NewHash([]byte(data.String())))
}

// ComputeOptionsHash hashes a flat option map independent of key order.
func ComputeOptionsHash(options map[string]interface{}) OptionsHash {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("=%v;", options[key]))
	}

	return OptionsHash(NewHash([]byte(data.String())))
}
