package gpu

// Address is the device virtual address of a resource.
type Address uint64

// ResourceState describes how a resource is currently used by the device.
type ResourceState uint8

const (
	StateCommon ResourceState = iota
	StateUnorderedAccess
	StateCopySource
	StateCopyDest
	StatePresent
)

func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "common"
	case StateUnorderedAccess:
		return "unordered access"
	case StateCopySource:
		return "copy source"
	case StateCopyDest:
		return "copy destination"
	case StatePresent:
		return "present"
	}
	return "unknown"
}

// Releaser is implemented by every device resource.
type Releaser interface {
	Release()
}

// Buffer is a linear block of device memory visible to the host.
type Buffer interface {
	Releaser

	Name() string
	Size() int
	Address() Address

	// Map the buffer contents for host access. Mapping fails with ErrBusy
	// while submitted work that reads the buffer has not completed.
	Map() ([]byte, error)

	// Release the host mapping.
	Unmap()
}

// Surface is a 2D RGBA8 render target.
type Surface interface {
	Releaser

	Width() int
	Height() int
	State() ResourceState

	// Get the surface pixels (row-major RGBA8, top row first). Only valid
	// while the surface is in the copy source state.
	Pixels() ([]byte, error)
}

// AccelerationStructure is a bottom or top level ray traversal structure.
type AccelerationStructure interface {
	Releaser

	Name() string
	Address() Address
}

// Pipeline is a ray tracing pipeline with its shader table.
type Pipeline interface {
	Releaser

	// The number of hit-group records in the shader table.
	NumHitGroups() int
}

// GeometryDesc describes one procedural geometry of a bottom-level build.
type GeometryDesc struct {
	// Buffer holding packed AABB records.
	AABBs Buffer

	// Number of AABB records.
	Count int

	Opaque bool
}

// BuildMode selects between a full build and an in-place refit.
type BuildMode uint8

const (
	BuildModeBuild BuildMode = iota
	BuildModeUpdate
)

// TopLevelInputs describes a top-level build or update.
type TopLevelInputs struct {
	Instances    Buffer
	NumInstances int
	Mode         BuildMode

	// Structures built with AllowUpdate can later be refit.
	AllowUpdate bool

	// Update mode only.
	Source  AccelerationStructure
	Scratch Buffer
}

// PrebuildInfo reports the memory requirements of a top-level build.
type PrebuildInfo struct {
	ResultSize        int
	ScratchSize       int
	UpdateScratchSize int
}

// HitGroupDesc names the programs of one hit-group record.
type HitGroupDesc struct {
	Name         string
	Intersection string
	ClosestHit   string
}

// Bindings are the resources visible to the shader programs of a dispatch.
type Bindings struct {
	TopLevel AccelerationStructure
	Objects  Buffer
	Lights   Buffer
	Camera   Buffer
	Output   Surface
}

// Device exposes the buffer, acceleration structure and dispatch services
// required by the renderer.
type Device interface {
	Name() string

	// Allocate a host visible buffer. If contents is not nil it is copied
	// into the buffer and must not be longer than size.
	Allocate(name string, size int, contents []byte) (Buffer, error)

	// Build a bottom-level structure over procedural geometry.
	BuildBottomLevel(name string, geometry []GeometryDesc) (AccelerationStructure, error)

	// Query the requirements of a top-level build over n instances.
	TopLevelPrebuildInfo(n int) PrebuildInfo

	// Build or update a top-level structure. Updates return the source
	// structure.
	BuildTopLevel(name string, inputs TopLevelInputs) (AccelerationStructure, error)

	// Create an output surface in the unordered access state.
	CreateSurface(width, height int) (Surface, error)

	// Create a pipeline whose shader table holds the given hit groups in
	// order.
	CreatePipeline(hitGroups []HitGroupDesc) (Pipeline, error)

	// Transition a surface between resource states.
	Transition(surface Surface, before, after ResourceState) error

	// Submit a ray dispatch over a width x height grid. The dispatch runs
	// asynchronously; call Flush to wait for it.
	DispatchRays(pipeline Pipeline, bindings Bindings, width, height int) error

	// Block until all submitted work completes.
	Flush() error

	// Release all device resources.
	Close()
}
