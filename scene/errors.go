package scene

import "errors"

var (
	ErrUnsupportedCombination = errors.New("scene: unsupported shape/material combination")
	ErrUnknownPreset          = errors.New("scene: unknown preset")
)
