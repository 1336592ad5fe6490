package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	EncryptedSeed string `validate:"required,base64"`
	Code          string `validate:"omitempty,otpcode"`
	Seed          string `validate:"omitempty,hexseed"`
}

func TestV10Validator(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	var _ Validator = v

	require.NoError(t, v.Validate(sample{EncryptedSeed: "AAAA", Code: "012345", Seed: strings.Repeat("ab", 32)}))

	err = v.Validate(sample{Code: "12a456", Seed: strings.Repeat("AB", 32)})
	require.Error(t, err)

	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "EncryptedSeed is a required field", verr.Values()["encrypted_seed"])
	require.Equal(t, "Code must be exactly 6 digits", verr.Values()["code"])
	require.Equal(t, "Seed must be 64 lowercase hex characters", verr.Values()["seed"])
	require.Contains(t, err.Error(), "encrypted_seed")
}

func TestV10ValidationError_Error(t *testing.T) {
	require.Equal(t, "validation error", V10ValidationError{}.Error())
	require.Equal(t,
		"code: Code must be exactly 6 digits; encrypted_seed: EncryptedSeed is a required field",
		V10ValidationError{
			"encrypted_seed": "EncryptedSeed is a required field",
			"code":           "Code must be exactly 6 digits",
		}.Error(),
	)
}

func TestV10Validator_NonStruct(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate("not a struct")
	require.Error(t, err)

	var verr V10ValidationError
	require.False(t, errors.As(err, &verr))
}
