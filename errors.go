package hxform

import "errors"

// Sentinel errors for form operations.
var (
	ErrNotFound         = errors.New("hxform: not found")
	ErrInvalidArgument  = errors.New("hxform: invalid argument")
	ErrUnsupported      = errors.New("hxform: unsupported operation")
	ErrDecryptFailed    = errors.New("hxform: session decryption failed")
	ErrSignatureInvalid = errors.New("hxform: session signature verification failed")
	ErrInvalidFormat    = errors.New("hxform: invalid session format")
)

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidArgument checks if err is an invalid-argument error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}
