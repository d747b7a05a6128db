package service

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("meeting not found")
	ErrInactive     = errors.New("meeting is no longer active")
	ErrMeetingFull  = errors.New("meeting is full")
	ErrForbidden    = errors.New("only the meeting creator can end it")
)
