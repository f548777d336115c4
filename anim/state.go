package anim

// State is the playback cursor of one clip inside a Set.
type State struct {
	clip *Clip

	Time    float32
	Weight  float32
	Enabled bool
	Loop    bool
	// Root limits the state to this joint and its descendants.
	// NoParent drives every joint, including those under a second root.
	Root uint32

	fade float32
	// stopFade and stopLeft ramp the weight to zero for StopSmooth.
	stopFade float32
	stopLeft float32
}

func newState(c *Clip) *State {
	return &State{clip: c, Root: NoParent}
}

func (s *State) Clip() *Clip {
	return s.clip
}

func (s *State) Name() string {
	return s.clip.Name
}

// EffectiveWeight is Weight scaled by the fade-in and fade-out ramps of PlaySmooth
// and the ramp of StopSmooth.
func (s *State) EffectiveWeight() float32 {
	w := s.Weight
	if s.fade > 0 {
		if s.Time < s.fade {
			w *= s.Time / s.fade
		}
		if rest := s.clip.Duration - s.Time; rest < s.fade {
			if rest < 0 {
				rest = 0
			}
			w *= rest / s.fade
		}
	}
	if s.stopFade > 0 {
		w *= s.stopLeft / s.stopFade
	}
	return w
}

func (s *State) play(weight float32, loop bool) {
	s.Time = 0
	s.Weight = weight
	s.Loop = loop
	s.Enabled = true
	s.fade = 0
	s.stopFade = 0
}

// fadeOut starts or shortens the stop ramp. A running ramp keeps its current
// level and reaches zero after d seconds instead.
func (s *State) fadeOut(d float32) {
	if s.stopFade <= 0 {
		s.stopFade, s.stopLeft = d, d
		return
	}
	if d < s.stopLeft {
		s.stopFade *= d / s.stopLeft
		s.stopLeft = d
	}
}

// advance moves the cursor by dt and reports whether the state should be sampled
// this frame. A non-looping state that reaches its end is disabled.
func (s *State) advance(dt float32) bool {
	if s.stopFade > 0 {
		s.stopLeft -= dt
		if s.stopLeft <= 0 {
			s.Enabled = false
			s.stopFade = 0
			return false
		}
	}
	s.Time += dt
	if s.Time >= s.clip.Duration {
		if !s.Loop {
			s.Enabled = false
			return false
		}
		s.Time = 0
	}
	return true
}
