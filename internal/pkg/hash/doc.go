// Package hash derives keyed digests that identify a secret without
// revealing it.
package hash
