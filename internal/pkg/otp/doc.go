// Package otp generates and verifies time-step codes (TOTP) derived from a
// hex seed.
//
// The wire parameters are fixed: a 30 second period, 6 digits and
// HMAC-SHA1. Every function takes the instant explicitly so callers decide
// where time comes from (see the clock package).
package otp
