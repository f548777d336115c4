package anim

import (
	"math"

	"github.com/pkg/errors"
)

// Sample is the full local pose of a skeleton at one timestamp.
type Sample struct {
	Time  float32
	Poses []JointPose
}

// Clip is a named keyframed animation. Clips are read-only once built and may be
// shared by any number of sets.
type Clip struct {
	Name     string
	Duration float32
	Samples  []Sample
	Skeleton *Skeleton
}

// NewClip checks that samples are ordered, cover every joint and fit in duration.
func NewClip(skel *Skeleton, name string, duration float32, samples []Sample) (*Clip, error) {
	if len(samples) == 0 {
		return nil, errors.Wrapf(ErrCorrupt, "clip %q has no samples", name)
	}
	if !(duration >= 0) || math.IsInf(float64(duration), 0) {
		return nil, errors.Wrapf(ErrCorrupt, "clip %q: duration %v", name, duration)
	}
	for i := range samples {
		if len(samples[i].Poses) != skel.JointCount() {
			return nil, errors.Wrapf(ErrCorrupt, "clip %q sample %d: %d poses for %d joints",
				name, i, len(samples[i].Poses), skel.JointCount())
		}
		if i > 0 && !(samples[i].Time >= samples[i-1].Time) {
			return nil, errors.Wrapf(ErrCorrupt, "clip %q sample %d: timestamp %v before %v",
				name, i, samples[i].Time, samples[i-1].Time)
		}
	}
	if last := samples[len(samples)-1].Time; last > duration {
		return nil, errors.Wrapf(ErrCorrupt, "clip %q: last timestamp %v exceeds duration %v", name, last, duration)
	}
	return &Clip{Name: name, Duration: duration, Samples: samples, Skeleton: skel}, nil
}

// Bracket returns the samples around t: next is the first sample with a timestamp
// greater than t. Past the end the last pair is used.
func (c *Clip) Bracket(t float32) (prev, next int) {
	n := len(c.Samples)
	if n < 2 {
		return 0, 0
	}
	next = n - 1
	for i := 1; i < n; i++ {
		if c.Samples[i].Time > t {
			next = i
			break
		}
	}
	return next - 1, next
}

// SamplePose writes the interpolated pose at t into dst, which must hold one entry per joint.
func (c *Clip) SamplePose(t float32, dst []JointPose) {
	prev, next := c.Bracket(t)
	a, b := &c.Samples[prev], &c.Samples[next]
	interval := b.Time - a.Time
	if prev == next || !(interval > 0) {
		copy(dst, a.Poses)
		return
	}
	progression := (t - a.Time) / interval
	if progression < 0 {
		progression = 0
	} else if progression > 1 {
		progression = 1
	}
	for i := range dst {
		dst[i] = MixPose(a.Poses[i], b.Poses[i], progression)
	}
}

// FirstPose is the pose of the first sample.
func (c *Clip) FirstPose() []JointPose {
	return c.Samples[0].Poses
}
