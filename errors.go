package shareme

import (
	"errors"
	"fmt"
	"net/http"
)

// error taxonomy for the client:
// - NetworkError: transport failure, no response was received
// - HttpError: a response with a non-2xx status. 401 additionally forces logout
// - AuthError: login failed or the issued token could not be parsed
// - DomainError: a local guard rejected the call before dispatch

type NetworkError struct {
	Cause error
}

func (self *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", self.Cause)
}

func (self *NetworkError) Unwrap() error {
	return self.Cause
}

type HttpError struct {
	Status  int
	Message string
}

func (self *HttpError) Error() string {
	if self.Message != "" {
		return fmt.Sprintf("http %d: %s", self.Status, self.Message)
	}
	return fmt.Sprintf("http %d: %s", self.Status, http.StatusText(self.Status))
}

func (self *HttpError) IsUnauthorized() bool {
	return self.Status == http.StatusUnauthorized
}

type AuthError struct {
	Message string
}

func (self *AuthError) Error() string {
	if self.Message == "" {
		return "authentication failed"
	}
	return self.Message
}

type DomainError struct {
	Message string
}

func (self *DomainError) Error() string {
	return self.Message
}

var ErrNotLoggedIn = &DomainError{Message: "You must be logged in"}
var ErrEmptyComment = &DomainError{Message: "You must write something"}
var ErrMissingImage = &DomainError{Message: "You must select an image file"}

func IsHttpStatus(err error, status int) bool {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Status == status
	}
	return false
}
