package store

import (
	"errors"
	"net/http"
)

// Error codes carried in HTTP error bodies so clients can recover the sentinel.
const (
	codeNotFound        = "not_found"
	codeRoomNotFound    = "room_not_found"
	codeUnauthenticated = "unauthenticated"
	codeEmptyBody       = "empty_body"
	codeInternal        = "internal"
)

// ErrorBody is the JSON error envelope used over HTTP.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError maps err to a status code and error envelope.
func HTTPError(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		body.Code = codeUnauthenticated
		return http.StatusUnauthorized, body
	case errors.Is(err, ErrRoomNotFound):
		body.Code = codeRoomNotFound
		return http.StatusNotFound, body
	case errors.Is(err, ErrNotFound):
		body.Code = codeNotFound
		return http.StatusNotFound, body
	case errors.Is(err, ErrEmptyBody):
		body.Code = codeEmptyBody
		return http.StatusBadRequest, body
	}
	body.Code = codeInternal
	return http.StatusInternalServerError, body
}

func errorFromBody(status int, body ErrorBody) error {
	switch body.Code {
	case codeUnauthenticated:
		return ErrUnauthenticated
	case codeRoomNotFound:
		return ErrRoomNotFound
	case codeNotFound:
		return ErrNotFound
	case codeEmptyBody:
		return ErrEmptyBody
	}
	if body.Error == "" {
		body.Error = http.StatusText(status)
	}
	return &RemoteError{Status: status, Message: body.Error}
}

// RemoteError is a server failure with no matching sentinel.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return "store: server returned " + http.StatusText(e.Status) + ": " + e.Message
}

// Event is pushed to room watchers whenever the room's shapes change.
type Event struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	ShapeID string `json:"shapeId,omitempty"`
}

const EventShapesChanged = "shapes-changed"
