package gpu

// Slot owns at most one device resource. Replacing the held resource
// releases the previous one.
type Slot[T Releaser] struct {
	val T
	set bool
}

// Get the held resource.
func (s *Slot[T]) Get() T {
	return s.val
}

// Check whether the slot holds a resource.
func (s *Slot[T]) Valid() bool {
	return s.set
}

// Release the held resource and store v.
func (s *Slot[T]) Replace(v T) {
	s.Release()
	s.val = v
	s.set = true
}

// Release the held resource, if any.
func (s *Slot[T]) Release() {
	if !s.set {
		return
	}
	s.val.Release()
	var zero T
	s.val = zero
	s.set = false
}
