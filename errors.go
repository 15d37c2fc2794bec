package methodcache

import (
	"errors"
	"fmt"
)

// Setup errors. They are returned from New, Add and Register wrapped in a
// *RegistrationError or *CacheConfigError and indicate a programming mistake.
var (
	ErrNilMethod              = errors.New("method must be a function")
	ErrInvalidName            = errors.New("invalid method name")
	ErrMethodExists           = errors.New("method name already exists")
	ErrMissingGenerateTimeout = errors.New("method caching requires a GenerateTimeout")
	ErrGenerateFuncNotAllowed = errors.New("cannot set GenerateFunc with method caching")
	ErrMissingExpiresIn       = errors.New("method caching requires a positive ExpiresIn")
	ErrInvalidStaleIn         = errors.New("StaleIn must be less than ExpiresIn")
	ErrInvalidSegment         = errors.New("invalid cache segment name")
	ErrUnknownCache           = errors.New("unknown cache")
	ErrSegmentClaimed         = errors.New("cannot provision the same cache segment more than once")
	ErrDuplicateCache         = errors.New("cannot configure the same cache more than once")
	ErrInvalidCacheConfig     = errors.New("cache config needs exactly one of Engine or Provider")
	ErrProvisionAfterStart    = errors.New("cannot provision caches once initialization has started")
)

// Call-time errors.
var (
	// ErrBadImplementation marks key generation failures: the caller passed
	// arguments the method's key generator cannot encode.
	ErrBadImplementation = errors.New("bad implementation")
	// ErrGenerateTimeout is returned when a generation outlives GenerateTimeout.
	ErrGenerateTimeout = errors.New("generation timed out")
	// ErrNotStarted is returned by a client used before its backend started.
	ErrNotStarted = errors.New("cache client not started")
)

// RegistrationError names the method whose registration failed.
type RegistrationError struct {
	Method string
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("methodcache: register %q: %v", e.Method, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// CacheConfigError names the cache whose provisioning failed.
type CacheConfigError struct {
	Cache string
	Err   error
}

func (e *CacheConfigError) Error() string {
	name := e.Cache
	if name == DefaultCache {
		name = "default cache"
	}
	return fmt.Sprintf("methodcache: cache %q: %v", name, e.Err)
}

func (e *CacheConfigError) Unwrap() error { return e.Err }

// BadImplementationError is returned when a cached method is invoked or
// dropped with arguments its key generator rejects. It is a caller error,
// never a backend outage, and is not retried.
type BadImplementationError struct {
	Method string
	Args   []any
}

func (e *BadImplementationError) Error() string {
	return fmt.Sprintf("methodcache: invalid method key when invoking %q (args %v)", e.Method, e.Args)
}

func (e *BadImplementationError) Is(target error) bool { return target == ErrBadImplementation }

// DropError reports a failed invalidation. A bump failure alone still deletes
// the entry but cannot stop an in-flight generation from writing it back.
type DropError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *DropError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("drop %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("drop %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("drop %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("drop %q: unknown error", e.Key)
	}
}

func (e *DropError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
