package mp4

import "errors"

// Kind classifies why an operation failed. The set is closed: every error the
// package returns wraps exactly one of these sentinels, so callers can branch
// on it with errors.Is instead of string matching.
type Kind int

const (
	// KindInvalidData means a wire-format violation: bad magic, an
	// out-of-range field, or self-inconsistent counts.
	KindInvalidData Kind = iota
	// KindMemoryAlloc means an allocation failed. The package never panics
	// on this; it is reported like any other error.
	KindMemoryAlloc
	// KindFunctionParam means API misuse: a nil handle, or a zero ID where
	// a non-zero one is required.
	KindFunctionParam
	// KindNameless covers any other unexpected failure not worth its own
	// taxonomy entry (an empty timeline, I/O failing mid-parse).
	KindNameless
	// KindPatchWelcome marks a known-unimplemented path (free-format MP3
	// bitrate, LPCM mixed with non-LPCM samples in one track).
	KindPatchWelcome
	// KindStreamError wraps an underlying FileReader/FileWriter failure.
	KindStreamError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidData:
		return "invalid data"
	case KindMemoryAlloc:
		return "memory alloc"
	case KindFunctionParam:
		return "function param"
	case KindNameless:
		return "nameless"
	case KindPatchWelcome:
		return "patch welcome"
	case KindStreamError:
		return "stream error"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind, for use with errors.Is and fmt.Errorf's %w.
var (
	ErrInvalidData   = errors.New("invalid data")
	ErrMemoryAlloc   = errors.New("memory alloc")
	ErrFunctionParam = errors.New("function param")
	ErrNameless      = errors.New("nameless")
	ErrPatchWelcome  = errors.New("patch welcome")
	ErrStreamError   = errors.New("stream error")
)

// KindOf maps a sentinel error (or any error wrapping one) to its Kind. Ok is
// false if err does not wrap one of the package sentinels.
func KindOf(err error) (k Kind, ok bool) {
	switch {
	case errors.Is(err, ErrInvalidData):
		return KindInvalidData, true
	case errors.Is(err, ErrMemoryAlloc):
		return KindMemoryAlloc, true
	case errors.Is(err, ErrFunctionParam):
		return KindFunctionParam, true
	case errors.Is(err, ErrNameless):
		return KindNameless, true
	case errors.Is(err, ErrPatchWelcome):
		return KindPatchWelcome, true
	case errors.Is(err, ErrStreamError):
		return KindStreamError, true
	default:
		return 0, false
	}
}
