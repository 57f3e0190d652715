package auth

import "errors"

var (
	// ErrInvalidCredential covers bad signatures, malformed or expired
	// tokens and failed logins. Callers surface it as one generic
	// authentication failure and never reveal which part failed.
	ErrInvalidCredential = errors.New("auth: invalid credential")

	// ErrRevoked marks a token found in the revocation store. Clients
	// receive the same response as for ErrInvalidCredential.
	ErrRevoked = errors.New("auth: token revoked")

	// ErrPrincipalSuspended rejects logins for non-active principals.
	ErrPrincipalSuspended = errors.New("auth: principal suspended")

	// ErrAccessDenied means the identity resolved but failed the
	// authorization check. Distinct from ErrNotFound.
	ErrAccessDenied = errors.New("auth: access denied")

	// ErrNotFound is returned identically for records that never
	// existed and records that were soft-deleted.
	ErrNotFound = errors.New("auth: not found")

	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
)
