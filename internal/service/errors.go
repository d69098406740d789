package service

import (
	"errors"

	"github.com/thenetcircle/dino-framework/internal/msglog"
)

// Not-found conditions are surfaced to the caller as-is and never retried.
// Conflicts (the 1-to-1 creation race) are resolved inside the repository
// and never reach this layer; cache failures never surface at all.
var (
	ErrNoSuchGroup      = errors.New("no such group")
	ErrNotInGroup       = errors.New("user not in group")
	ErrNoSuchMessage    = msglog.ErrNoSuchMessage
	ErrNoSuchAttachment = msglog.ErrNoSuchAttachment
)

// IsNotFound reports whether err is any of the not-found conditions.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSuchGroup) ||
		errors.Is(err, ErrNotInGroup) ||
		errors.Is(err, ErrNoSuchMessage) ||
		errors.Is(err, ErrNoSuchAttachment)
}
