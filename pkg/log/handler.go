package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// field is one normalised key-value pair.
type field struct {
	key   string
	value any
}

// normalizeFields turns slog-style variadic arguments into pairs.
// A bare error occupies a single slot and is keyed as "error".
func normalizeFields(fields []any) []field {
	out := make([]field, 0, len(fields)/2+1)
	for i := 0; i < len(fields); {
		if err, ok := fields[i].(error); ok {
			out = append(out, field{key: ErrAttrKey, value: err})
			i++
			continue
		}
		if i+1 >= len(fields) {
			out = append(out, field{key: "!BADKEY", value: fields[i]})
			break
		}
		out = append(out, field{key: fmt.Sprint(fields[i]), value: fields[i+1]})
		i += 2
	}
	return out
}

// appendEvent writes fields to a zerolog event. Errors under the "error"
// key also get a stacktrace field from cockroachdb safe details.
func appendEvent(e *zerolog.Event, fields []any) *zerolog.Event {
	for _, f := range normalizeFields(fields) {
		err, isErr := f.value.(error)
		switch {
		case isErr && f.key == ErrAttrKey:
			e = e.Err(err)
			if st := extractStacktrace(err); st != "" {
				e = e.Str(StacktraceAttrKey, st)
			}
		default:
			if m, ok := f.value.(zerolog.LogObjectMarshaler); ok {
				e = e.Object(f.key, m)
			} else if isErr {
				e = e.AnErr(f.key, err)
			} else {
				e = e.Interface(f.key, f.value)
			}
		}
	}
	return e
}

func appendContext(c zerolog.Context, fields []any) zerolog.Context {
	for _, f := range normalizeFields(fields) {
		if err, ok := f.value.(error); ok {
			c = c.AnErr(f.key, err)
			continue
		}
		c = c.Interface(f.key, f.value)
	}
	return c
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
