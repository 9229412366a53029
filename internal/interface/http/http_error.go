package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	"github.com/yanqian/usage-forecaster/internal/domain/extract"
	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
	// RawOutput is the responder text behind the failure, when there was one.
	RawOutput *string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError maps an application error code to a status and summary.
func fromDomainError(err error) *HTTPError {
	code := apperrors.Code(err)
	status, message := statusForCode(code)
	if code == "" {
		code = "internal_error"
	}
	httpErr := &HTTPError{Status: status, Code: code, Message: message, Err: err}
	if raw, ok := apperrors.RawOutput(err); ok {
		httpErr.RawOutput = &raw
	}
	return httpErr
}

func statusForCode(code string) (int, string) {
	switch code {
	case analysis.CodeInvalidInput:
		return http.StatusBadRequest, "invalid request"
	case auth.CodeInvalidToken, "unauthorized":
		return http.StatusUnauthorized, "unauthorized"
	case analysis.CodeUnknownSource:
		return http.StatusNotFound, "unknown data source"
	case series.CodeEmptyDataset:
		return http.StatusNotFound, "dataset is empty"
	case series.CodeNoDataInRange:
		return http.StatusNotFound, "no data in the requested range"
	case "rate_limit_exceeded":
		return http.StatusTooManyRequests, "too many requests"
	case analysis.CodeResponderUnavailable:
		return http.StatusBadGateway, "responder unavailable"
	case analysis.CodeResponderProtocolError:
		return http.StatusBadGateway, "responder returned an invalid envelope"
	case extract.CodeNoStructuredPayload, extract.CodeNoValidRecords:
		return http.StatusInternalServerError, "could not extract structured output from the responder"
	case schema.CodeMalformedJSON, schema.CodeUnexpectedRecordCount, schema.CodeFieldTypeMismatch:
		return http.StatusInternalServerError, "responder output did not match the expected schema"
	case analysis.CodeSourceError:
		return http.StatusInternalServerError, "failed to read the data source"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
