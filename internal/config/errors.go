package config

import "fmt"

// Error is an invalid or incomplete configuration: unknown chain, missing
// credential, or a config file that does not validate.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
