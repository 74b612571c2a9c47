// Package domain defines the key material types and errors shared by the cryptographic primitives.
package domain

// MinKeySize is the minimum length in bytes of signing keys and random tokens (256 bits).
const MinKeySize = 32
