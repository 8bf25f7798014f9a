package hub

import "errors"

var ErrSubscriberNotFound = errors.New("subscriber not found")
