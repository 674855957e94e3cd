package types

import (
	"errors"
	"fmt"
)

// Validation failures. They are always wrapped in a *ValidationError.
var (
	ErrNoSigSpecs       = errors.New("address spec has no signer entries")
	ErrRequiredSigners  = errors.New("required signers out of range")
	ErrUnknownAlgorithm = errors.New("unknown signature algorithm")
	ErrBadPublicKey     = errors.New("malformed public key")
	ErrWrongPrefix      = errors.New("address prefix mismatch")
	ErrBadChecksum      = errors.New("address checksum mismatch")
	ErrInvalidChar      = errors.New("invalid address character")
	ErrMixedCase        = errors.New("address has mixed case")
	ErrBadLength        = errors.New("address has wrong length")
	ErrValueOutOfRange  = errors.New("output value out of range")
)

// ValidationError reports input that can never become valid by retrying:
// a malformed address spec or an address string that fails to decode.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// invalid builds a ValidationError wrapping err with extra detail.
func invalid(op string, err error, format string, args ...interface{}) error {
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]interface{}{err}, args...)...)
	}
	return &ValidationError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
