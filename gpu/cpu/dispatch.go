package cpu

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/achilleasa/procrt/gpu"
	"github.com/achilleasa/procrt/scene"
	"github.com/achilleasa/procrt/types"
	"github.com/chewxy/math32"
)

// Camera ray setup shared by all pixels of a dispatch.
type viewport struct {
	center   types.Vec3
	pixel00  types.Vec3
	deltaU   types.Vec3
	deltaV   types.Vec3
	defocusU types.Vec3
	defocusV types.Vec3
	defocus  bool

	background types.Vec3
	frameIndex uint32
	spp        int
	sqrtSpp    int
	stratify   bool
}

var worldUp = types.XYZ(0, 1, 0)

func newViewport(cam scene.Camera, width, height int) viewport {
	focus := cam.FocusDist
	if focus <= 0 {
		focus = max(cam.EyeDir().Len(), 1)
	}
	h := math32.Tan(types.DegToRad(cam.VFov) / 2)
	viewportHeight := 2 * h * focus
	viewportWidth := viewportHeight * float32(width) / float32(height)

	w := cam.LookFrom.Sub(cam.LookAt).Normalize()
	u := w.Cross(worldUp).Normalize()
	v := u.Cross(w)

	viewportU := u.Mul(viewportWidth)
	viewportV := v.Mul(-viewportHeight)

	vp := viewport{
		center:     cam.LookFrom,
		deltaU:     viewportU.Mul(1 / float32(width)),
		deltaV:     viewportV.Mul(1 / float32(height)),
		background: cam.Background,
		frameIndex: cam.FrameIndex,
		spp:        max(int(cam.SamplesPerPixel), 1),
		stratify:   cam.Stratify,
	}
	vp.sqrtSpp = int(math.Sqrt(float64(vp.spp)))

	upperLeft := vp.center.Sub(w.Mul(focus)).Sub(viewportU.Mul(0.5)).Sub(viewportV.Mul(0.5))
	vp.pixel00 = upperLeft.Add(vp.deltaU.Add(vp.deltaV).Mul(0.5))

	if cam.DefocusAngle > 0 {
		radius := focus * math32.Tan(types.DegToRad(cam.DefocusAngle/2))
		vp.defocusU = u.Mul(radius)
		vp.defocusV = v.Mul(radius)
		vp.defocus = true
	}
	return vp
}

// Everything the programs of a dispatch read.
type frame struct {
	pipeline *pipeline
	topLevel *topLevel
	objects  []scene.Object
	lights   []uint32
	view     viewport
	maxDepth int

	width, height int
	stride        int
	out           []byte
}

// Per-worker state.
type traceContext struct {
	frame *frame
	src   *rand.PCG
	rng   *rand.Rand
}

func newTraceContext(f *frame) *traceContext {
	src := rand.NewPCG(0, 0)
	return &traceContext{frame: f, src: src, rng: rand.New(src)}
}

// Submit a ray dispatch. Any previously submitted dispatch is waited for
// first.
func (d *Device) DispatchRays(p gpu.Pipeline, bindings gpu.Bindings, width, height int) error {
	if err := d.Flush(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, j, err := d.prepareFrame(p, bindings, width, height)
	if err != nil {
		return err
	}

	for _, b := range j.buffers {
		b.pending = true
	}
	j.topLevel.pending = true
	j.surface.pending = true
	d.pending = j

	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	workers := min(d.workers, height)
	j.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer j.wg.Done()
			ctx := newTraceContext(f)
			for y := range rows {
				ctx.traceRow(y)
			}
		}()
	}
	return nil
}

// Validate the dispatch inputs and snapshot the bound resources. Must be
// called with the device lock held.
func (d *Device) prepareFrame(p gpu.Pipeline, bindings gpu.Bindings, width, height int) (*frame, *job, error) {
	if d.closed {
		return nil, nil, fmt.Errorf("cpu device (%s): %w", d.name, gpu.ErrReleased)
	}

	pipe, ok := p.(*pipeline)
	if !ok || pipe == nil || pipe.device != d {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: pipeline: %w", d.name, gpu.ErrForeignHandle)
	}
	if pipe.released {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: pipeline: %w", d.name, gpu.ErrReleased)
	}

	tlas, ok := bindings.TopLevel.(*topLevel)
	if !ok || tlas == nil || tlas.device != d {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: top-level structure: %w", d.name, gpu.ErrForeignHandle)
	}
	if tlas.released {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: top-level structure: %w", d.name, gpu.ErrReleased)
	}

	surf, ok := bindings.Output.(*surface)
	if !ok || surf == nil || surf.device != d {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: output: %w", d.name, gpu.ErrForeignHandle)
	}
	switch {
	case surf.released:
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: output: %w", d.name, gpu.ErrReleased)
	case surf.state != gpu.StateUnorderedAccess:
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: output surface in state %s: %w", d.name, surf.state, gpu.ErrInvalidState)
	case width <= 0 || height <= 0 || width > surf.width || height > surf.height:
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: grid %dx%d does not fit output surface %dx%d", d.name, width, height, surf.width, surf.height)
	}

	j := &job{topLevel: tlas, surface: surf}
	read := func(b gpu.Buffer, role string) ([]byte, error) {
		buf, err := d.ownBuffer(b, role)
		if err != nil {
			return nil, err
		}
		data, err := buf.contents()
		if err != nil {
			return nil, err
		}
		j.buffers = append(j.buffers, buf)
		return data, nil
	}

	camData, err := read(bindings.Camera, "camera")
	if err != nil {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: %w", d.name, err)
	}
	cam, err := scene.DecodeCamera(camData)
	if err != nil {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: %w", d.name, err)
	}

	objData, err := read(bindings.Objects, "object")
	if err != nil {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: %w", d.name, err)
	}
	objects, err := scene.DecodeObjects(objData[:len(objData)/scene.ObjectRecordSize*scene.ObjectRecordSize])
	if err != nil {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: %w", d.name, err)
	}

	lightData, err := read(bindings.Lights, "light")
	if err != nil {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: %w", d.name, err)
	}
	lights, err := scene.DecodeLights(lightData, int(cam.NumLights))
	if err != nil {
		return nil, nil, fmt.Errorf("cpu device (%s): dispatch: %w", d.name, err)
	}
	for i, l := range lights {
		if int(l) >= len(objects) {
			return nil, nil, fmt.Errorf("cpu device (%s): dispatch: light %d references object %d of %d", d.name, i, l, len(objects))
		}
	}

	for i := range tlas.instances {
		desc := &tlas.instances[i].desc
		if int(desc.HitGroup()) >= len(pipe.hitGroups) {
			return nil, nil, fmt.Errorf("cpu device (%s): dispatch: instance %d hit group %d outside shader table of %d records", d.name, i, desc.HitGroup(), len(pipe.hitGroups))
		}
		if int(desc.ID()) >= len(objects) {
			return nil, nil, fmt.Errorf("cpu device (%s): dispatch: instance %d references object %d of %d", d.name, i, desc.ID(), len(objects))
		}
	}

	f := &frame{
		pipeline: pipe,
		topLevel: tlas,
		objects:  objects,
		lights:   lights,
		view:     newViewport(cam, width, height),
		maxDepth: d.maxDepth,
		width:    width,
		height:   height,
		stride:   surf.width * 4,
		out:      surf.pixels,
	}
	return f, j, nil
}

// Trace all pixels of a row.
func (ctx *traceContext) traceRow(y int) {
	f := ctx.frame
	vp := &f.view
	scale := 1 / float32(vp.spp)
	row := f.out[y*f.stride:]

	for x := 0; x < f.width; x++ {
		ctx.src.Seed(uint64(y)<<32|uint64(x), uint64(vp.frameIndex)*0x9e3779b97f4a7c15+1)

		var color types.Vec3
		for s := 0; s < vp.spp; s++ {
			sample := ctx.radiance(ctx.cameraRay(x, y, s))
			for c := 0; c < 3; c++ {
				if math32.IsNaN(sample[c]) || math32.IsInf(sample[c], 0) {
					sample[c] = 0
				}
			}
			color = color.Add(sample)
		}
		color = color.Mul(scale)

		px := row[x*4:]
		px[0] = toByte(color[0])
		px[1] = toByte(color[1])
		px[2] = toByte(color[2])
		px[3] = 255
	}
}

// Gamma 2 encode a linear intensity.
func toByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	return byte(256 * min(math32.Sqrt(v), 0.999))
}

// Generate the s-th camera ray for pixel (x, y). When stratification is on
// the first sqrt(spp)^2 samples are jittered within a regular grid.
func (ctx *traceContext) cameraRay(x, y, s int) ray {
	vp := &ctx.frame.view

	ox := ctx.rng.Float32() - 0.5
	oy := ctx.rng.Float32() - 0.5
	if vp.stratify && vp.sqrtSpp > 1 && s < vp.sqrtSpp*vp.sqrtSpp {
		inv := 1 / float32(vp.sqrtSpp)
		ox = (float32(s%vp.sqrtSpp)+ox+0.5)*inv - 0.5
		oy = (float32(s/vp.sqrtSpp)+oy+0.5)*inv - 0.5
	}

	target := vp.pixel00.Add(vp.deltaU.Mul(float32(x) + ox)).Add(vp.deltaV.Mul(float32(y) + oy))
	origin := vp.center
	if vp.defocus {
		p := randomInUnitDisk(ctx.rng)
		origin = origin.Add(vp.defocusU.Mul(p[0])).Add(vp.defocusV.Mul(p[1]))
	}
	return ray{origin: origin, dir: target.Sub(origin)}
}

// Iteratively follow a path up to the maximum depth.
func (ctx *traceContext) radiance(r ray) types.Vec3 {
	f := ctx.frame
	throughput := types.XYZ(1, 1, 1)
	var color types.Vec3

	for depth := 0; depth < f.maxDepth; depth++ {
		hit, group, ok := ctx.trace(r)
		if !ok {
			return color.Add(throughput.MulVec(f.view.background))
		}

		res := group.shade(ctx, r, &hit)
		color = color.Add(throughput.MulVec(res.emitted))
		if !res.ok {
			break
		}
		throughput = throughput.MulVec(res.attenuation)
		r = res.scattered
	}
	return color
}

// Find the closest hit along r.
func (ctx *traceContext) trace(r ray) (hitRecord, *hitGroupRecord, bool) {
	f := ctx.frame
	tlas := f.topLevel

	var (
		best      hitRecord
		bestGroup *hitGroupRecord
		outward   types.Vec3
	)
	q := rayQuery{world: r}

	traverseBVH(tlas.nodes, r.origin, r.dir, rayTMin, math.MaxFloat32, func(first, count int, tMax float32) float32 {
		for _, idx := range tlas.order[first : first+count] {
			in := &tlas.instances[idx]
			if in.desc.Mask() == 0 {
				continue
			}

			group := &f.pipeline.hitGroups[in.desc.HitGroup()]
			obj := &f.objects[in.desc.ID()]
			q.object = ray{
				origin: in.worldToObject.TransformPoint(r.origin),
				dir:    in.worldToObject.TransformVector(r.dir),
			}
			q.inst = in
			invDir := reciprocal(q.object.dir)

			for _, box := range in.blas.boxes {
				if _, _, hit := intersectBBox(types.Vec3(box.Min), types.Vec3(box.Max), q.object.origin, invDir, rayTMin, tMax); !hit {
					continue
				}
				q.tMax = tMax
				t, n, ok := group.intersect(ctx, &q, obj)
				if !ok || t >= tMax {
					continue
				}
				tMax = t
				best.t = t
				best.object = obj
				bestGroup = group
				outward = n
			}
		}
		return tMax
	})

	if bestGroup == nil {
		return hitRecord{}, nil, false
	}
	best.point = r.at(best.t)
	best.setFaceNormal(r, outward)
	return best, bestGroup, true
}

// Pick a direction from p towards a random light. Returns false if the
// chosen light cannot be sampled directly.
func (ctx *traceContext) sampleLight(p types.Vec3) (types.Vec3, bool) {
	lights := ctx.frame.lights
	obj := &ctx.frame.objects[lights[ctx.rng.IntN(len(lights))]]

	switch obj.Shape {
	case scene.Sphere:
		toCenter := obj.Center.Sub(p)
		d2 := toCenter.LenSq()
		r2 := obj.Radius * obj.Radius
		if d2 <= r2 {
			return randomUnitVector(ctx.rng), true
		}
		cosThetaMax, _ := coneSolidAngle(r2, d2)
		return newONB(toCenter).transform(randomToSphere(ctx.rng, cosThetaMax)), true
	case scene.Quad:
		target := obj.Q.Add(obj.U.Mul(ctx.rng.Float32())).Add(obj.V.Mul(ctx.rng.Float32()))
		return target.Sub(p), true
	}
	return types.Vec3{}, false
}

// The density of sampleLight for a unit direction dir. Lights that cannot be
// sampled directly fall back to cosine sampling around n.
func (ctx *traceContext) lightPdf(p, dir, n types.Vec3) float32 {
	lights := ctx.frame.lights
	var sum float32
	for _, l := range lights {
		obj := &ctx.frame.objects[l]
		r := ray{origin: p, dir: dir}

		switch obj.Shape {
		case scene.Sphere:
			d2 := obj.Center.Sub(p).LenSq()
			r2 := obj.Radius * obj.Radius
			if d2 <= r2 {
				sum += 1 / (4 * math32.Pi)
				continue
			}
			if _, hit := hitSphere(r, obj.Center, obj.Radius, rayTMin, math.MaxFloat32); !hit {
				continue
			}
			_, solidAngle := coneSolidAngle(r2, d2)
			if solidAngle > 0 {
				sum += 1 / solidAngle
			}
		case scene.Quad:
			t, hit := hitQuad(r, obj, rayTMin, math.MaxFloat32)
			if !hit {
				continue
			}
			area := obj.U.Cross(obj.V).Len()
			cosine := math32.Abs(dir.Dot(quadNormal(obj)))
			if cosine < 1e-8 || area == 0 {
				continue
			}
			sum += t * t / (cosine * area)
		default:
			sum += max(0, n.Dot(dir)) / math32.Pi
		}
	}
	return sum / float32(len(lights))
}
