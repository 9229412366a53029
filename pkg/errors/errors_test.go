package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap("malformed_json", "payload did not parse", cause)

	require.True(t, IsCode(err, "malformed_json"))
	require.False(t, IsCode(err, "empty_dataset"))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "payload did not parse: boom", err.Error())
	require.Equal(t, "malformed_json", Code(err))
}

func TestWithRawOutput(t *testing.T) {
	base := Wrap("no_valid_records", "nothing survived", nil)
	err := WithRawOutput(base, "internal_error", "the raw text")

	raw, ok := RawOutput(err)
	require.True(t, ok)
	require.Equal(t, "the raw text", raw)
	require.True(t, IsCode(err, "no_valid_records"))

	_, ok = RawOutput(base)
	require.False(t, ok, "original error must stay untouched")
}

func TestWithRawOutputWrapsForeignErrors(t *testing.T) {
	err := WithRawOutput(stderrors.New("plain"), "pipeline_failed", "raw")
	require.True(t, IsCode(err, "pipeline_failed"))

	raw, ok := RawOutput(err)
	require.True(t, ok)
	require.Equal(t, "raw", raw)
	require.Nil(t, WithRawOutput(nil, "x", "raw"))
}

func TestRawOutputFindsInnerError(t *testing.T) {
	inner := WithRawOutput(Wrap("malformed_json", "bad", nil), "", "inner raw")
	outer := Wrap("forecast_failed", "forecast failed", inner)

	raw, ok := RawOutput(outer)
	require.True(t, ok)
	require.Equal(t, "inner raw", raw)
}
