// Package character drives the animation of one skinned model from a YAML description.
package character

import (
	"log"

	"github.com/binzume/tweenanim/anim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Op string

const (
	OpPlay   Op = "play"
	OpStop   Op = "stop"
	OpWeight Op = "weight"
	OpSmooth Op = "smooth"
	OpRoot   Op = "root"
)

// Command is one playback decision, applied before the next Update.
type Command struct {
	Op     Op      `json:"op"`
	Clip   string  `json:"clip"`
	Weight float32 `json:"weight,omitempty"`
	Loop   bool    `json:"loop,omitempty"`
	Fade   float32 `json:"fade,omitempty"`
	Joint  string  `json:"joint,omitempty"`
}

// ClipStatus is a snapshot of one clip's playback.
type ClipStatus struct {
	Name     string  `json:"name"`
	Duration float32 `json:"duration"`
	Time     float32 `json:"time"`
	Weight   float32 `json:"weight"`
	Enabled  bool    `json:"enabled"`
	Loop     bool    `json:"loop"`
}

// Character owns the mutable playback state. It is not safe for concurrent use.
type Character struct {
	Name   string
	assets *Assets

	set      *anim.Set
	animator *anim.Animator
}

func New(conf *Config, assets *Assets) (*Character, error) {
	c := &Character{Name: conf.Name, assets: assets}
	if c.Name == "" {
		c.Name = assets.Skeleton.Name
	}

	var err error
	if conf.Mode == ModeExclusive {
		var opts []anim.AnimatorOption
		if conf.Transition != nil {
			opts = append(opts, anim.WithTransitionDuration(*conf.Transition))
		}
		c.animator, err = anim.NewAnimator(assets.Skeleton, assets.Clips, opts...)
	} else {
		mode := anim.BlendSequential
		if conf.Blend == BlendAverage {
			mode = anim.BlendWeightedAverage
		}
		c.set, err = anim.NewSet(assets.Skeleton, assets.Clips, anim.WithBlendMode(mode))
	}
	if err != nil {
		return nil, err
	}

	for _, l := range conf.Layers {
		if l.Root != "" && c.set != nil {
			if err := c.Apply(Command{Op: OpRoot, Clip: l.Clip, Joint: l.Root}); err != nil && !anim.IsNotFound(err) {
				return nil, err
			}
		}
		if !l.Play {
			continue
		}
		cmd := Command{Op: OpPlay, Clip: l.Clip, Weight: l.Weight, Loop: l.Loop}
		if l.Smooth > 0 {
			cmd = Command{Op: OpSmooth, Clip: l.Clip, Weight: l.Weight, Fade: l.Smooth}
		}
		if err := c.Apply(cmd); err != nil && !anim.IsNotFound(err) {
			return nil, err
		}
	}
	return c, nil
}

func (c *Character) Assets() *Assets {
	return c.assets
}

func (c *Character) Skeleton() *anim.Skeleton {
	return c.assets.Skeleton
}

func (c *Character) Exclusive() bool {
	return c.animator != nil
}

// Set is nil in exclusive mode.
func (c *Character) Set() *anim.Set {
	return c.set
}

// Animator is nil in layered mode.
func (c *Character) Animator() *anim.Animator {
	return c.animator
}

// Apply executes cmd. Unknown clips and joints are logged and returned as
// anim.ErrNotFound without changing anything.
func (c *Character) Apply(cmd Command) error {
	err := c.apply(cmd)
	if anim.IsNotFound(err) {
		log.Printf("[character] %s: %s: %v", c.Name, cmd.Op, err)
	}
	return err
}

func (c *Character) apply(cmd Command) error {
	if c.animator != nil {
		if cmd.Op != OpPlay && cmd.Op != OpSmooth {
			return errors.Errorf("%s is not supported in exclusive mode", cmd.Op)
		}
		return c.animator.Play(cmd.Clip)
	}
	switch cmd.Op {
	case OpPlay:
		return c.set.Play(cmd.Clip, cmd.Weight, cmd.Loop)
	case OpStop:
		if cmd.Fade > 0 {
			return c.set.StopSmooth(cmd.Clip, cmd.Fade)
		}
		return c.set.Stop(cmd.Clip)
	case OpWeight:
		return c.set.UpdateWeight(cmd.Clip, cmd.Weight)
	case OpSmooth:
		return c.set.PlaySmooth(cmd.Clip, cmd.Weight, cmd.Fade)
	case OpRoot:
		return c.set.SetRootJoint(cmd.Clip, cmd.Joint)
	}
	return errors.Errorf("unknown command %q", cmd.Op)
}

// Finished reports whether a clip is not playing.
func (c *Character) Finished(clip string) bool {
	if c.animator != nil {
		cur := c.animator.Current()
		tr := c.animator.Transition()
		return (cur == nil || cur.Name != clip) && !(tr.Active && tr.Destination.Name == clip)
	}
	return c.set.Finished(clip)
}

// Update advances playback by dt seconds and returns the skinning matrices.
func (c *Character) Update(dt float32) ([]mgl32.Mat4, error) {
	var err error
	if c.animator != nil {
		err = c.animator.Update(dt)
	} else {
		err = c.set.Update(dt)
	}
	if err != nil {
		return nil, errors.Wrap(err, c.Name)
	}
	return c.Transforms(), nil
}

func (c *Character) Transforms() []mgl32.Mat4 {
	if c.animator != nil {
		return c.animator.Transforms()
	}
	return c.set.Transforms()
}

func (c *Character) WorldTransforms() []mgl32.Mat4 {
	if c.animator != nil {
		return c.animator.WorldTransforms()
	}
	return c.set.WorldTransforms()
}

func (c *Character) Pose() []anim.JointPose {
	if c.animator != nil {
		return c.animator.Pose()
	}
	return c.set.FinalPose()
}

func (c *Character) Clips() []ClipStatus {
	var result []ClipStatus
	if c.animator != nil {
		cur := c.animator.Current()
		tr := c.animator.Transition()
		for _, clip := range c.assets.Clips {
			st := ClipStatus{Name: clip.Name, Duration: clip.Duration, Loop: true}
			if tr.Active && clip == tr.Destination {
				st.Enabled, st.Time, st.Weight = true, tr.DestinationTime, tr.Progress()
			} else if clip == cur {
				st.Enabled, st.Time, st.Weight = true, c.animator.Time(), 1
				if tr.Active {
					st.Weight = 1 - tr.Progress()
				}
			}
			result = append(result, st)
		}
		return result
	}
	for _, s := range c.set.States() {
		result = append(result, ClipStatus{
			Name:     s.Name(),
			Duration: s.Clip().Duration,
			Time:     s.Time,
			Weight:   s.EffectiveWeight(),
			Enabled:  s.Enabled,
			Loop:     s.Loop,
		})
	}
	return result
}

// Release frees the per-character buffers. Shared assets are kept.
func (c *Character) Release() {
	if c.animator != nil {
		c.animator.Release()
	}
	if c.set != nil {
		c.set.Release()
	}
}
