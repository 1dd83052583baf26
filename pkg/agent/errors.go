package agent

// ErrorKind mirrors the five-kind taxonomy every failure in this system
// is classified under. The orchestrator and tool registry already render
// failures into chunk/tool-result prose rather than raising; ErrorKind
// exists so tests (and any caller that does get a Go error, e.g. from
// Build or NewSession) can assert on errors.Is/errors.As against a kind
// rather than matching strings.
type ErrorKind int

const (
	// KindUserInput: unknown tool, unknown subagent type, malformed
	// arguments, file not found.
	KindUserInput ErrorKind = iota
	// KindExternalService: provider non-2xx, LSP/MCP timeout, HTTP fetch
	// failure.
	KindExternalService
	// KindResourceLimit: iteration cap, token window, bash/sandbox
	// timeout, subagent cap.
	KindResourceLimit
	// KindIntegrity: diff-preview declined, multiedit validation failure.
	KindIntegrity
	// KindFatalInternal: JSON-RPC framing corruption, unrecoverable child
	// stdio loss. The affected client is torn down; the agent continues.
	KindFatalInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindUserInput:
		return "user-input"
	case KindExternalService:
		return "external-service"
	case KindResourceLimit:
		return "resource-limit"
	case KindIntegrity:
		return "integrity"
	case KindFatalInternal:
		return "fatal-internal"
	default:
		return "unknown"
	}
}

// sentinel is the comparable target errors.Is checks a KindedError
// against — one per kind, so `errors.Is(err, agent.ErrResourceLimit)`
// works the ordinary sentinel-error way across a %w chain.
type sentinel ErrorKind

func (s sentinel) Error() string { return ErrorKind(s).String() + " error" }

var (
	ErrUserInput       error = sentinel(KindUserInput)
	ErrExternalService error = sentinel(KindExternalService)
	ErrResourceLimit   error = sentinel(KindResourceLimit)
	ErrIntegrity       error = sentinel(KindIntegrity)
	ErrFatalInternal   error = sentinel(KindFatalInternal)
)

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindUserInput:
		return ErrUserInput
	case KindExternalService:
		return ErrExternalService
	case KindResourceLimit:
		return ErrResourceLimit
	case KindIntegrity:
		return ErrIntegrity
	default:
		return ErrFatalInternal
	}
}

// KindedError wraps an underlying error with its taxonomy kind, so
// errors.As can recover the kind across a %w chain and errors.Is(err,
// agent.ErrResourceLimit) (etc.) matches regardless of the wrapped
// error's own identity.
type KindedError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindedError) Error() string { return e.Kind.String() + ": " + e.Err.Error() }

func (e *KindedError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind,
// letting errors.Is(err, agent.ErrIntegrity) succeed without the caller
// needing to know about KindedError at all.
func (e *KindedError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// WrapKind builds a KindedError, or returns nil for a nil err so callers
// can write `return WrapKind(Kind..., err)` unconditionally.
func WrapKind(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &KindedError{Kind: kind, Err: err}
}
