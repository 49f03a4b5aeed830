// Package crypto holds the primitives the reference module needs that the
// standard library does not provide directly: X25519 key handling and
// AES-CMAC (RFC 4493).
package crypto
