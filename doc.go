// Package byok is a credential management subsystem for multi-tenant
// services whose users bring their own upstream AI-provider API keys.
//
// It has two halves. The client half is the scoped credential Store: a
// caller encrypts a provider credential with authenticated AES-GCM under one
// of three lifetime scopes (tab, session, persistent) and only ever persists
// the resulting EncryptedBundle or a masked display form — never the
// plaintext. Persistent-scope keys are derived from a passphrase with
// PBKDF2; losing the passphrase makes that data unrecoverable by design.
//
// The server half is the Manager: a fixed-window rate limiter in front of a
// deterministic Resolver that picks exactly one credential per request from
// a strict precedence order (authenticated user store, then guest-supplied
// headers, then operator environment fallback), a redacting audit and
// metrics Recorder observing every outcome, and a key-testing operation that
// makes one minimal live call upstream.
//
// Pluggable backends live under providers/: a SQLite authenticated-user
// store, Vault- and AWS-Secrets-Manager-backed operator sources, and
// SDK-based provider testers.
package byok
