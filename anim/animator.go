package anim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// DefaultTransitionDuration is the crossfade length used by NewAnimator.
const DefaultTransitionDuration = 0.5

// Transition is a crossfade from a captured pose to the first sample of Destination.
type Transition struct {
	Active          bool
	Time            float32
	Duration        float32
	Source          *Clip
	Destination     *Clip
	SourceTime      float32
	DestinationTime float32

	start []JointPose
	end   []JointPose
}

// Progress is the blend factor in [0,1].
func (t *Transition) Progress() float32 {
	if t.Duration <= 0 || t.Time >= t.Duration {
		return 1
	}
	return t.Time / t.Duration
}

type AnimatorOption func(*Animator)

func WithTransitionDuration(d float32) AnimatorOption {
	return func(a *Animator) {
		a.transitionDuration = d
	}
}

// Animator plays one clip at a time and crossfades when the clip changes.
type Animator struct {
	skeleton           *Skeleton
	clips              []*Clip
	transitionDuration float32

	current    *Clip
	time       float32
	transition Transition

	pose     []JointPose
	pipeline *Pipeline
}

func NewAnimator(skel *Skeleton, clips []*Clip, opts ...AnimatorOption) (*Animator, error) {
	a := &Animator{
		skeleton:           skel,
		clips:              clips,
		transitionDuration: DefaultTransitionDuration,
	}
	for _, o := range opts {
		o(a)
	}
	for _, c := range clips {
		if c.Skeleton != skel {
			return nil, errors.Wrapf(ErrSkeletonMismatch, "clip %q", c.Name)
		}
	}
	n := skel.JointCount()
	a.pose = make([]JointPose, n)
	copy(a.pose, skel.BindPose())
	a.transition.start = make([]JointPose, n)
	a.transition.end = make([]JointPose, n)
	a.pipeline = NewPipeline(skel)
	return a, nil
}

func (a *Animator) Skeleton() *Skeleton {
	return a.skeleton
}

// Clip looks up a clip by name.
func (a *Animator) Clip(name string) (*Clip, error) {
	for _, c := range a.clips {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "clip %q", name)
}

// Current is the clip in control, nil before the first Play.
// During a transition it is still the clip that was playing when it started.
func (a *Animator) Current() *Clip {
	return a.current
}

// Time is the cursor of the current clip.
func (a *Animator) Time() float32 {
	return a.time
}

func (a *Animator) Transition() *Transition {
	return &a.transition
}

// Play switches to the named clip. The first call starts it directly; later calls
// crossfade from the pose shown right now. Playing the current clip, or the clip
// being faded to, again is a no-op.
func (a *Animator) Play(name string) error {
	c, err := a.Clip(name)
	if err != nil || a.pose == nil {
		return err
	}
	tr := &a.transition
	if a.current == nil || a.transitionDuration <= 0 {
		a.current = c
		a.time = 0
		tr.Active = false
		c.SamplePose(0, a.pose)
		_, err = a.pipeline.Compute(a.pose)
		return err
	}
	if (!tr.Active && a.current == c) || (tr.Active && tr.Destination == c) {
		return nil
	}

	if tr.Active {
		copy(tr.start, a.pose)
		tr.Source, tr.SourceTime = tr.Destination, tr.DestinationTime
	} else {
		a.current.SamplePose(a.time, tr.start)
		tr.Source, tr.SourceTime = a.current, a.time
	}
	copy(tr.end, c.FirstPose())
	tr.Destination = c
	tr.DestinationTime = 0
	tr.Time = 0
	tr.Duration = a.transitionDuration
	tr.Active = true
	copy(a.pose, tr.start)
	return nil
}

// Update advances the current clip or the running transition by dt and recomputes
// the skinning matrices.
func (a *Animator) Update(dt float32) error {
	if a.current == nil || a.pose == nil {
		return nil
	}
	tr := &a.transition
	if tr.Active {
		tr.Time += dt
		tr.SourceTime = wrapTime(tr.Source, tr.SourceTime+dt)
		tr.DestinationTime = wrapTime(tr.Destination, tr.DestinationTime+dt)
		f := tr.Progress()
		for i := range a.pose {
			a.pose[i] = MixPose(tr.start[i], tr.end[i], f)
		}
		if tr.Time >= tr.Duration {
			tr.Active = false
			a.current = tr.Destination
			a.time = tr.DestinationTime
		}
	} else {
		a.time = wrapTime(a.current, a.time+dt)
		a.current.SamplePose(a.time, a.pose)
	}
	_, err := a.pipeline.Compute(a.pose)
	return err
}

func wrapTime(c *Clip, t float32) float32 {
	if t < c.Duration {
		return t
	}
	if c.Duration <= 0 {
		return 0
	}
	return float32(math.Mod(float64(t), float64(c.Duration)))
}

// Pose is the local pose shown after the last Play or Update.
func (a *Animator) Pose() []JointPose {
	return a.pose
}

func (a *Animator) Transforms() []mgl32.Mat4 {
	return a.pipeline.Skinning()
}

func (a *Animator) WorldTransforms() []mgl32.Mat4 {
	return a.pipeline.World()
}

func (a *Animator) Release() {
	a.pose = nil
	a.transition.start = nil
	a.transition.end = nil
	a.pipeline.Release()
}
