package queue

import "errors"

// ErrProcessorNil is returned when a queue is created without a processor.
var ErrProcessorNil = errors.New("processor cannot be nil")
