package gpu

import "errors"

var (
	ErrBusy           = errors.New("gpu: resource is in use by pending work")
	ErrReleased       = errors.New("gpu: resource has been released")
	ErrInvalidUpdate  = errors.New("gpu: invalid acceleration structure update")
	ErrInvalidState   = errors.New("gpu: invalid resource state")
	ErrUnknownProgram = errors.New("gpu: unknown shader program")
	ErrForeignHandle  = errors.New("gpu: resource belongs to a different device")
)
