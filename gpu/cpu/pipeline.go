package cpu

import (
	"fmt"

	"github.com/achilleasa/procrt/gpu"
)

type hitGroupRecord struct {
	name      string
	intersect intersectionProgram
	shade     closestHitProgram
}

type pipeline struct {
	device    *Device
	hitGroups []hitGroupRecord

	// Guarded by the device lock.
	released bool
}

func (p *pipeline) NumHitGroups() int {
	return len(p.hitGroups)
}

func (p *pipeline) Release() {
	p.device.mu.Lock()
	p.released = true
	p.device.mu.Unlock()
}

// Create a pipeline whose shader table lists the given hit groups in order.
// Ray generation and miss programs are implicit.
func (d *Device) CreatePipeline(hitGroups []gpu.HitGroupDesc) (gpu.Pipeline, error) {
	p := &pipeline{
		device:    d,
		hitGroups: make([]hitGroupRecord, len(hitGroups)),
	}
	for i, hg := range hitGroups {
		intersect, ok := intersectionPrograms[hg.Intersection]
		if !ok {
			return nil, fmt.Errorf("cpu device (%s): hit group %s: intersection program %q: %w", d.name, hg.Name, hg.Intersection, gpu.ErrUnknownProgram)
		}
		shade, ok := closestHitPrograms[hg.ClosestHit]
		if !ok {
			return nil, fmt.Errorf("cpu device (%s): hit group %s: closest-hit program %q: %w", d.name, hg.Name, hg.ClosestHit, gpu.ErrUnknownProgram)
		}
		p.hitGroups[i] = hitGroupRecord{name: hg.Name, intersect: intersect, shade: shade}
	}

	d.logger.Debugf("created pipeline with %d hit groups", len(p.hitGroups))
	return p, nil
}
