package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common storage operation errors
var (
	// ErrAlreadyExists indicates an upload targeted a key that is taken.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotFound indicates the key does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey indicates a key that cannot name an object.
	ErrInvalidKey = errors.New("invalid object key")
	// ErrFolderRename indicates an attempt to rename a folder.
	ErrFolderRename = errors.New("renaming folders is not supported")
)

// StatusError is a non-2xx response from a REST backend.
type StatusError struct {
	Op         string
	Key        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Op, e.Key, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
}

// Is maps well-known status codes onto the sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrAlreadyExists:
		return e.StatusCode == http.StatusConflict || IsFileExistsMessage(e.Message)
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAlreadyExists reports whether err means the target key is taken.
// Besides errors wrapping ErrAlreadyExists it recognises the message
// fragments backends use for the condition.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAlreadyExists) {
		return true
	}
	return IsFileExistsMessage(err.Error())
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFileExistsMessage checks a backend message for "already exists"
// indicators.
func IsFileExistsMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, indicator := range []string{
		"already exists",
		"duplicate",
		"blobalreadyexists",
		"preconditionfailed",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
