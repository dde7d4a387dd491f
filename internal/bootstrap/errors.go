// ABOUTME: Sentinel errors for the bootstrap resolution chain
// ABOUTME: Handlers map these to HTTP statuses and stable error codes

package bootstrap

import "errors"

var (
	// ErrPrincipalMismatch means the caller's principal_key hint did not match
	// the authenticated principal.
	ErrPrincipalMismatch = errors.New("principal key hint does not match authenticated principal")

	// ErrNoBinding means the principal has no active binding and therefore no
	// world to be welcomed into.
	ErrNoBinding = errors.New("no active binding for principal")

	// ErrComponentNotPermitted means the requested component key is not in the
	// profile's allowed component list.
	ErrComponentNotPermitted = errors.New("component not permitted by profile")

	// ErrProfileMissing and ErrManifestMissing are data integrity failures: a
	// binding points at a row that no longer exists.
	ErrProfileMissing  = errors.New("binding references missing profile")
	ErrManifestMissing = errors.New("binding references missing manifest")
)
