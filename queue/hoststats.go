package queue

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cheapskatecoder/draconic/errors"
)

// GopsutilSampler implements HostSampler by reading host-wide CPU and
// memory utilization through gopsutil. It is purely informational — the
// scheduler never consults it to gate admission, only to enrich
// Metrics() for an operator dashboard (spec.md §6). Grounded on
// pulse/async.getMemoryStats's gopsutil/v3/mem.VirtualMemory call,
// generalized into a single cross-platform sampler since gopsutil itself
// already abstracts the OS difference the teacher's build-tagged
// per-platform files existed to isolate.
type GopsutilSampler struct {
	// cpuSampleWindow is how long cpu.Percent blocks measuring a delta;
	// kept short since Metrics callers expect a fast response.
	cpuSampleWindow time.Duration
}

// NewGopsutilSampler creates a sampler using a short CPU measurement
// window suitable for an on-demand Metrics call.
func NewGopsutilSampler() *GopsutilSampler {
	return &GopsutilSampler{cpuSampleWindow: 200 * time.Millisecond}
}

// Sample returns host-wide CPU and memory utilization as percentages.
func (g *GopsutilSampler) Sample() (cpuPercent, memPercent float64, err error) {
	percents, err := cpu.Percent(g.cpuSampleWindow, false)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to sample host cpu usage")
	}
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to sample host memory usage")
	}
	memPercent = v.UsedPercent

	return cpuPercent, memPercent, nil
}
