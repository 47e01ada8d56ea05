package frame

import (
	"errors"
	"fmt"
)

// Kind classifies render failures
type Kind int

const (
	KindResourceNotFound Kind = iota + 1
	KindResourceLoadFailure
	KindPersistenceFailure
)

func (k Kind) String() string {
	switch k {
	case KindResourceNotFound:
		return "resource not found"
	case KindResourceLoadFailure:
		return "resource load failure"
	case KindPersistenceFailure:
		return "persistence failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is; a *RenderError matches the sentinel of its Kind.
var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrResourceLoadFailure = errors.New("resource load failure")
	ErrPersistenceFailure  = errors.New("persistence failure")
	ErrInvalidOptions      = errors.New("invalid render options")
)

// Resource names used in RenderError
const (
	ResourceFont       = "font"
	ResourceBackground = "background"
	ResourceOutput     = "output"
)

// RenderError reports which resource failed and why
type RenderError struct {
	Kind     Kind
	Resource string
	Path     string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", e.Kind, e.Resource, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind
func (e *RenderError) Is(target error) bool {
	switch target {
	case ErrResourceNotFound:
		return e.Kind == KindResourceNotFound
	case ErrResourceLoadFailure:
		return e.Kind == KindResourceLoadFailure
	case ErrPersistenceFailure:
		return e.Kind == KindPersistenceFailure
	}
	return false
}

func notFound(resource, path string, err error) error {
	return &RenderError{Kind: KindResourceNotFound, Resource: resource, Path: path, Err: err}
}

func loadFailure(resource, path string, err error) error {
	return &RenderError{Kind: KindResourceLoadFailure, Resource: resource, Path: path, Err: err}
}

func persistenceFailure(path string, err error) error {
	return &RenderError{Kind: KindPersistenceFailure, Resource: ResourceOutput, Path: path, Err: err}
}

// IsResourceNotFound reports whether err is a missing font or background
func IsResourceNotFound(err error) bool { return errors.Is(err, ErrResourceNotFound) }

// IsLoadFailure reports whether err is an undecodable font or background
func IsLoadFailure(err error) bool { return errors.Is(err, ErrResourceLoadFailure) }

// IsPersistenceFailure reports whether err is a failed save
func IsPersistenceFailure(err error) bool { return errors.Is(err, ErrPersistenceFailure) }
