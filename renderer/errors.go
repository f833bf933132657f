package renderer

import "errors"

var (
	ErrNoPresenter    = errors.New("renderer: no presenter attached")
	ErrInvalidOptions = errors.New("renderer: invalid options")
)
