// Package seed recovers and validates the shared TOTP secret.
//
// The canonical secret is exactly 64 lowercase hexadecimal characters. It is
// delivered as a base64 RSA-OAEP (SHA-256, MGF1-SHA-256, empty label)
// ciphertext and decrypted with a 4096-bit RSA private key. Every failure is
// reported as one of the sentinel errors in this package so callers can map
// it without inspecting underlying causes.
package seed
