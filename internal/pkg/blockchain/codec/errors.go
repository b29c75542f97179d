package codec

import (
	"errors"
	"fmt"
)

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("decode error")

// DecodeError reports return data that does not match the schema of Method.
type DecodeError struct {
	Method Method
	Len    int
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decoding %s (%d bytes): %s", e.Method, e.Len, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func decodeErr(m Method, data []byte, reason string, err error) error {
	return &DecodeError{Method: m, Len: len(data), Reason: reason, Err: err}
}
