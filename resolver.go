package byok

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// LookupStatus is the typed outcome of an authenticated-user store lookup.
// NotFound and TransientError are treated identically by the precedence
// algorithm (fall through); callers can still tell them apart for monitoring.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupTransientError
)

// LookupResult carries the decrypted per-user credential when Status is
// LookupFound. The plaintext must not be retained beyond the request.
type LookupResult struct {
	Status    LookupStatus
	Plaintext string
	Err       error
}

// UserCredentialLookup reads the decrypted credential an authenticated user
// persisted for a provider. It is the only resolution source permitted to
// originate from server-side persisted storage.
type UserCredentialLookup interface {
	Lookup(ctx context.Context, userID string, provider Provider) LookupResult
}

// OperatorSource supplies the process-level credential the operator
// provisioned for a provider. Absence is an empty string, never an error.
type OperatorSource interface {
	OperatorCredential(ctx context.Context, provider Provider) string
}

// AuditSink receives structured audit events. Emission is best-effort: an
// unavailable sink must never block or fail the primary operation.
type AuditSink interface {
	Record(event AuditEvent)
}

// ResolvedCredential is created per request, never cached, and dropped at the
// end of request handling.
type ResolvedCredential struct {
	Source    Source
	Provider  Provider
	Plaintext string
}

// Request is the per-request input to Resolve.
type Request struct {
	PrincipalID   string
	Authenticated bool
	Provider      Provider

	// Guest-supplied transport header values, both optional.
	GuestProvider string
	GuestKey      string
}

// Resolver runs the fixed-order precedence algorithm: authenticated user
// store, then guest header pair, then operator environment fallback. No
// branch after the first matching one executes.
type Resolver struct {
	users    UserCredentialLookup
	operator OperatorSource
	recorder *Recorder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResolver wires the resolver's collaborators. Nil lookup or operator
// arguments degrade to no-op implementations so the precedence algorithm
// needs no conditional null checks.
func NewResolver(users UserCredentialLookup, operator OperatorSource, recorder *Recorder, timeout time.Duration, logger *slog.Logger) *Resolver {
	if users == nil {
		users = NopUserLookup{}
	}
	if operator == nil {
		operator = NopOperatorSource{}
	}
	if recorder == nil {
		recorder = NewRecorder(0)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{users: users, operator: operator, recorder: recorder, timeout: timeout, logger: logger}
}

// Resolve returns exactly one credential for the request, or Source None when
// every branch falls through. "No credential available" is a valid outcome,
// not an error; the credential value itself never reaches the recorder or the
// log.
func (r *Resolver) Resolve(ctx context.Context, req Request) ResolvedCredential {
	resolved := r.resolve(ctx, req)
	r.recorder.RecordResolution(resolved.Source, req.Provider)
	r.logger.LogAttrs(ctx, slog.LevelDebug, "credential resolved",
		slog.String("provider", string(req.Provider)),
		slog.String("source", string(resolved.Source)),
		slog.Bool("authenticated", req.Authenticated),
	)
	return resolved
}

func (r *Resolver) resolve(ctx context.Context, req Request) ResolvedCredential {
	// 1. Authenticated user store. A timeout or transient lookup failure is
	// treated as "not found": the algorithm proceeds rather than failing the
	// request.
	if req.Authenticated && req.PrincipalID != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		res := r.users.Lookup(lookupCtx, req.PrincipalID, req.Provider)
		cancel()
		switch res.Status {
		case LookupFound:
			if res.Plaintext != "" {
				return ResolvedCredential{Source: SourceUserStore, Provider: req.Provider, Plaintext: res.Plaintext}
			}
		case LookupTransientError:
			r.logger.LogAttrs(ctx, slog.LevelWarn, "user credential lookup failed, falling through",
				slog.String("provider", string(req.Provider)),
			)
		}
	}

	// 2. Guest-supplied header pair. A mismatched provider identifier falls
	// through, it does not error.
	if req.GuestKey != "" && req.GuestProvider != "" {
		if guest, err := ParseProvider(req.GuestProvider); err == nil && guest == req.Provider {
			return ResolvedCredential{Source: SourceGuestHeader, Provider: req.Provider, Plaintext: req.GuestKey}
		}
	}

	// 3. Operator environment fallback. Never fails; absence yields None.
	if value := r.operator.OperatorCredential(ctx, req.Provider); value != "" {
		return ResolvedCredential{Source: SourceEnvironment, Provider: req.Provider, Plaintext: value}
	}

	return ResolvedCredential{Source: SourceNone, Provider: req.Provider}
}

// GuestRequest builds a Request from raw header values, normalizing the
// provider identifier case-insensitively.
func GuestRequest(principalID string, provider Provider, headerProvider, headerKey string) Request {
	return Request{
		PrincipalID:   principalID,
		Authenticated: false,
		Provider:      provider,
		GuestProvider: strings.TrimSpace(headerProvider),
		GuestKey:      strings.TrimSpace(headerKey),
	}
}

// NopUserLookup satisfies UserCredentialLookup for deployments without an
// authenticated-user store.
type NopUserLookup struct{}

func (NopUserLookup) Lookup(ctx context.Context, userID string, provider Provider) LookupResult {
	return LookupResult{Status: LookupNotFound}
}

// NopOperatorSource provisions nothing.
type NopOperatorSource struct{}

func (NopOperatorSource) OperatorCredential(ctx context.Context, provider Provider) string {
	return ""
}
