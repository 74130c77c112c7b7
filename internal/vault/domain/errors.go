package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchema        = errors.New("schema_error")
	ErrKeyDerivation = errors.New("key_derivation_error")
	ErrStoreWrite    = errors.New("store_write_error")
)

// SchemaError reports required columns that are absent and cannot be synthesized.
type SchemaError struct {
	Missing []string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Reason != "" && len(e.Missing) == 0 {
		return fmt.Sprintf("%s: %s", ErrSchema, e.Reason)
	}
	return fmt.Sprintf("%s: missing required columns [%s]", ErrSchema, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// KeyDerivationError reports a derived key whose source columns are entirely absent.
type KeyDerivationError struct {
	Key     string
	Missing []string
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("%s: cannot derive %s, absent columns [%s]", ErrKeyDerivation, e.Key, strings.Join(e.Missing, ", "))
}

func (e *KeyDerivationError) Is(target error) bool { return target == ErrKeyDerivation }

// StoreWriteError wraps a store rejection of one record set.
type StoreWriteError struct {
	Table     string
	Attempted int
	Reason    string
	Err       error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s: table %s (%d rows): %v", ErrStoreWrite, e.Table, e.Attempted, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

func (e *StoreWriteError) Is(target error) bool { return target == ErrStoreWrite }
