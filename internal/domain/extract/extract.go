package extract

import (
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

// Error codes reported by the extractor.
const (
	CodeNoStructuredPayload = "no_structured_payload"
	CodeNoValidRecords      = "no_valid_records"
)

// Mode selects how the payload is repaired.
type Mode int

const (
	// ModeNumbers expects a bare array of scalars.
	ModeNumbers Mode = iota
	// ModeRecords expects an array of flat objects.
	ModeRecords
)

// Options configures one extraction.
type Options struct {
	Mode           Mode
	RequiredFields []string
}

// Result is the repaired payload plus a trace of the steps that changed it.
type Result struct {
	Payload string
	// Dropped counts record candidates discarded during repair.
	Dropped int
	Applied []string
}

// Extract isolates and repairs the structured payload in raw responder text.
// Failures carry raw as their raw output.
func Extract(raw string, opts Options) (Result, error) {
	var res Result
	track := func(step, before, after string) string {
		if before != after {
			res.Applied = append(res.Applied, step)
		}
		return after
	}

	text := track(StepUnfence, raw, Unfence(raw))

	span, ok := TrimToBrackets(text)
	if !ok {
		return Result{}, attach(apperrors.Wrap(CodeNoStructuredPayload, "no JSON array or object found in responder output", nil), raw)
	}
	text = track(StepTrimToBrackets, text, span)

	if opts.Mode == ModeNumbers {
		text = track(StepStripNonASCII, text, StripNonASCII(text))
		text = track(StepDropDanglingCommas, text, DropDanglingCommas(text))
		res.Payload = text
		return res, nil
	}

	candidates, abandoned := SplitRecords(text)
	kept, incomplete := KeepCompleteRecords(candidates, opts.RequiredFields)
	res.Dropped = abandoned + incomplete
	if res.Dropped > 0 {
		res.Applied = append(res.Applied, StepKeepCompleteRecords)
	}
	if len(kept) == 0 {
		return Result{}, attach(apperrors.Wrap(CodeNoValidRecords, "no complete records survived cleanup", nil), raw)
	}

	for i, rec := range kept {
		rec = track(StepStripNonASCII, rec, StripNonASCII(rec))
		rec = track(StepDropUnknownKeys, rec, DropUnknownKeys(rec, opts.RequiredFields))
		rec = track(StepDropDanglingCommas, rec, DropDanglingCommas(rec))
		kept[i] = rec
	}
	res.Payload = Reassemble(kept)
	res.Applied = dedupe(append(res.Applied, StepReassemble))
	return res, nil
}

func attach(err error, raw string) error {
	return apperrors.WithRawOutput(err, "", raw)
}

func dedupe(steps []string) []string {
	seen := make(map[string]struct{}, len(steps))
	out := steps[:0]
	for _, s := range steps {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
