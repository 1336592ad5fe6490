// Package clock injects the current time. Code generation and the code log
// take a Clocker so tests can pin a step with Fixed.
package clock
