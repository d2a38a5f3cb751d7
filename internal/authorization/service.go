package authorization

import (
	"context"
	"errors"
)

// Service is the single authorization choke point. Every handler asks
// it before touching a record; role checks never live in handlers.
type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
