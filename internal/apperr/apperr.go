// Package apperr defines the error kinds shared by the repositories, services
// and HTTP handlers. Handlers switch on Kind to pick a status code.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind tags an Error with its failure class
type Kind int

const (
	// KindOperation is an unexpected failure such as a storage fault
	KindOperation Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindRelationship
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRelationship:
		return "relationship"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "operation"
	}
}

// Error is a module-scoped failure. Entity names the owning module ("user",
// "folder", ...), Fields carries field-level detail for validation and
// relationship failures.
type Error struct {
	Entity  string
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && len(e.Fields) > 0 {
		msg = joinFields(e.Fields)
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Entity == "" {
		return msg
	}
	return e.Entity + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fields[k])
	}
	return strings.Join(parts, "; ")
}

// Validation reports malformed or missing input
func Validation(entity string, fields map[string]string) *Error {
	return &Error{Entity: entity, Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// Invalid reports a single invalid field
func Invalid(entity, field, message string) *Error {
	return &Error{
		Entity:  entity,
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s %s", field, message),
		Fields:  map[string]string{field: message},
	}
}

// NotFound reports that the addressed row does not exist
func NotFound(entity, id string) *Error {
	return &Error{Entity: entity, Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Conflict reports a uniqueness violation or a state that forbids the operation
func Conflict(entity, message string) *Error {
	return &Error{Entity: entity, Kind: KindConflict, Message: message}
}

// Relationship reports a reference to a row that does not exist or may not be linked
func Relationship(entity, field, id string) *Error {
	return &Error{
		Entity:  entity,
		Kind:    KindRelationship,
		Message: fmt.Sprintf("referenced %s %s does not exist", field, id),
		Fields:  map[string]string{field: "references a missing record"},
	}
}

// RelationshipMessage reports a rejected reference with a custom reason
func RelationshipMessage(entity, field, message string) *Error {
	return &Error{
		Entity:  entity,
		Kind:    KindRelationship,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// Operation wraps an unexpected failure of op
func Operation(entity, op string, err error) *Error {
	return &Error{Entity: entity, Kind: KindOperation, Message: "failed to " + op, Err: err}
}

// Unauthorized reports missing or invalid credentials
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden reports an authenticated caller lacking permission
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindOperation when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOperation
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// As extracts the *Error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
