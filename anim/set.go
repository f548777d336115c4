package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type BlendMode int

const (
	// BlendSequential re-blends the running result toward each state in
	// registration order. Later states win on overlapping joints.
	BlendSequential BlendMode = iota
	// BlendWeightedAverage divides the weighted sum of all states by the total weight.
	BlendWeightedAverage
)

type SetOption func(*Set)

func WithBlendMode(mode BlendMode) SetOption {
	return func(s *Set) {
		s.mode = mode
	}
}

// Set plays any number of clips of one skeleton at once and blends them into a
// single pose. States are evaluated in registration order.
type Set struct {
	skeleton *Skeleton
	states   []*State
	mode     BlendMode

	intermediate []JointPose
	final        []JointPose
	sum          []JointPose
	totals       []float32
	pipeline     *Pipeline
}

// NewSet registers one disabled state per clip.
func NewSet(skel *Skeleton, clips []*Clip, opts ...SetOption) (*Set, error) {
	s := &Set{skeleton: skel}
	for _, o := range opts {
		o(s)
	}
	for _, c := range clips {
		if c.Skeleton != skel {
			return nil, errors.Wrapf(ErrSkeletonMismatch, "clip %q", c.Name)
		}
		s.states = append(s.states, newState(c))
	}
	n := skel.JointCount()
	s.intermediate = make([]JointPose, n)
	s.final = make([]JointPose, n)
	if s.mode == BlendWeightedAverage {
		s.sum = make([]JointPose, n)
		s.totals = make([]float32, n)
	}
	s.pipeline = NewPipeline(skel)
	return s, nil
}

func (s *Set) Skeleton() *Skeleton {
	return s.skeleton
}

func (s *Set) States() []*State {
	return s.states
}

// State returns the state of the clip called name.
func (s *Set) State(name string) (*State, error) {
	for _, st := range s.states {
		if st.clip.Name == name {
			return st, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "clip %q", name)
}

// Play restarts a clip from time zero.
func (s *Set) Play(name string, weight float32, loop bool) error {
	st, err := s.State(name)
	if err != nil {
		return err
	}
	st.play(weight, loop)
	return nil
}

// PlaySmooth plays a clip once, ramping its weight in over the first fade seconds
// and out over the last fade seconds.
func (s *Set) PlaySmooth(name string, weight, fade float32) error {
	st, err := s.State(name)
	if err != nil {
		return err
	}
	st.play(weight, false)
	st.fade = fade
	return nil
}

// Stop disables a clip. Its time and weight are kept.
func (s *Set) Stop(name string) error {
	st, err := s.State(name)
	if err != nil {
		return err
	}
	st.Enabled = false
	st.stopFade = 0
	return nil
}

// StopSmooth fades a clip out over fade seconds and then disables it. A fade of
// zero or less stops it at once. A fade already running is only shortened.
func (s *Set) StopSmooth(name string, fade float32) error {
	st, err := s.State(name)
	if err != nil {
		return err
	}
	if fade <= 0 {
		st.Enabled = false
		st.stopFade = 0
		return nil
	}
	if st.Enabled {
		st.fadeOut(fade)
	}
	return nil
}

func (s *Set) UpdateWeight(name string, weight float32) error {
	st, err := s.State(name)
	if err != nil {
		return err
	}
	st.Weight = weight
	return nil
}

// SetRootJoint restricts a clip to the subtree rooted at joint.
func (s *Set) SetRootJoint(clip, joint string) error {
	st, err := s.State(clip)
	if err != nil {
		return err
	}
	idx, err := s.skeleton.JointIndex(joint)
	if err != nil {
		return err
	}
	st.Root = idx
	return nil
}

// Finished reports whether a clip is not playing. Unknown clips are finished.
func (s *Set) Finished(name string) bool {
	st, err := s.State(name)
	return err != nil || !st.Enabled
}

// Reset sets every joint of the blended pose back to the neutral value
// (zero translation, zero rotation, zero scale).
func (s *Set) Reset() {
	for i := range s.final {
		s.final[i] = JointPose{}
	}
}

// Update advances every enabled state by dt, blends them and recomputes the
// skinning matrices. Joints no state touches keep the value of the previous frame.
func (s *Set) Update(dt float32) error {
	if s.final == nil {
		return nil
	}
	if s.mode == BlendWeightedAverage {
		s.blendAverage(dt)
	} else {
		s.blendSequential(dt)
	}
	_, err := s.pipeline.Compute(s.final)
	return err
}

func (s *Set) blendSequential(dt float32) {
	for _, st := range s.states {
		if !st.Enabled || !st.advance(dt) {
			continue
		}
		st.clip.SamplePose(st.Time, s.intermediate)
		w := st.EffectiveWeight()
		for j := range s.final {
			if s.skeleton.IsInSubtree(uint32(j), st.Root) {
				s.final[j] = MixPose(s.final[j], s.intermediate[j], w)
			}
		}
	}
}

func (s *Set) blendAverage(dt float32) {
	for j := range s.sum {
		s.sum[j] = JointPose{}
		s.totals[j] = 0
	}
	for _, st := range s.states {
		if !st.Enabled || !st.advance(dt) {
			continue
		}
		st.clip.SamplePose(st.Time, s.intermediate)
		w := st.EffectiveWeight()
		if w == 0 {
			continue
		}
		for j := range s.sum {
			if !s.skeleton.IsInSubtree(uint32(j), st.Root) {
				continue
			}
			p := s.intermediate[j]
			acc := &s.sum[j]
			q := p.Rotation
			if s.totals[j] > 0 && acc.Rotation.Dot(q) < 0 {
				q = q.Scale(-1)
			}
			acc.Position = acc.Position.Add(p.Position.Mul(w))
			acc.Rotation = acc.Rotation.Add(q.Scale(w))
			acc.Scale = acc.Scale.Add(p.Scale.Mul(w))
			s.totals[j] += w
		}
	}
	for j := range s.final {
		total := s.totals[j]
		if total == 0 {
			continue
		}
		acc := s.sum[j]
		s.final[j] = JointPose{
			Position: acc.Position.Mul(1 / total),
			Rotation: acc.Rotation.Normalize(),
			Scale:    acc.Scale.Mul(1 / total),
		}
	}
}

// FinalPose is the blended local pose of the last Update.
func (s *Set) FinalPose() []JointPose {
	return s.final
}

// Transforms returns the skinning matrices of the last Update.
func (s *Set) Transforms() []mgl32.Mat4 {
	return s.pipeline.Skinning()
}

func (s *Set) WorldTransforms() []mgl32.Mat4 {
	return s.pipeline.World()
}

// Release drops the scratch buffers. The set must not be used afterwards.
func (s *Set) Release() {
	s.intermediate = nil
	s.final = nil
	s.sum = nil
	s.totals = nil
	s.pipeline.Release()
}
