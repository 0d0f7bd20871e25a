package grid

import "fmt"

// Job is one grid cell.
type Job struct {
	Outer int
	Inner int
}

// Name is the cell's workspace directory name.
func (j Job) Name() string {
	return fmt.Sprintf("block_%d_%d", j.Outer, j.Inner)
}

// Values are the substitutions rendered into a cell's patch rules.
type Values struct {
	Outer       int
	Inner       int
	HostPod     int
	KernelPod   int
	KernelBlock int
}

// Values derives the substitutions for the cell: the outer index selects the
// pod on both host and kernel side, the inner index a block offset.
func (j Job) Values(blockStride int) Values {
	return Values{
		Outer:       j.Outer,
		Inner:       j.Inner,
		HostPod:     j.Outer,
		KernelPod:   j.Outer,
		KernelBlock: j.Inner * blockStride,
	}
}

// Enumerate returns every (outer, inner) cell in row-major order.
func Enumerate(outer, inner int) []Job {
	if outer <= 0 || inner <= 0 {
		return nil
	}
	jobs := make([]Job, 0, outer*inner)
	for i := 0; i < outer; i++ {
		for j := 0; j < inner; j++ {
			jobs = append(jobs, Job{Outer: i, Inner: j})
		}
	}
	return jobs
}
