package errors

import "errors"

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
	// RawOutput holds the responder text that caused the failure, if any.
	RawOutput string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code returns the code of the outermost AppError in the chain.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// WithRawOutput attaches responder text to the outermost AppError. Errors that
// are not AppErrors are wrapped with the given fallback code.
func WithRawOutput(err error, fallbackCode, raw string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		clone := *appErr
		clone.RawOutput = raw
		return &clone
	}
	return &AppError{Code: fallbackCode, Message: err.Error(), Err: err, RawOutput: raw}
}

// RawOutput extracts attached responder text from the error chain.
func RawOutput(err error) (string, bool) {
	var appErr *AppError
	for errors.As(err, &appErr) {
		if appErr.RawOutput != "" {
			return appErr.RawOutput, true
		}
		err = appErr.Err
		if err == nil {
			break
		}
	}
	return "", false
}
