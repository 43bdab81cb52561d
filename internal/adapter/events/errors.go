package events

import "errors"

var (
	ErrPublisherClosed = errors.New("publisher closed")
	ErrBufferFull      = errors.New("event buffer full")
)
