package anim

import (
	"bytes"
	"math"
	"testing"

	"github.com/binzume/tweenanim/tween"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const eps = 1e-5

// chain builds root <- spine <- head with identity bind matrices.
func chain(t *testing.T) *Skeleton {
	t.Helper()
	s, err := NewSkeleton("body", []Joint{
		{Name: "root", Parent: NoParent, LocalBind: mgl32.Ident4(), InverseBind: mgl32.Ident4()},
		{Name: "spine", Parent: 0, LocalBind: mgl32.Ident4(), InverseBind: mgl32.Ident4()},
		{Name: "head", Parent: 1, LocalBind: mgl32.Ident4(), InverseBind: mgl32.Ident4()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func uniform(n int, p JointPose) []JointPose {
	poses := make([]JointPose, n)
	for i := range poses {
		poses[i] = p
	}
	return poses
}

func translated(x float32) JointPose {
	p := IdentityPose()
	p.Position = mgl32.Vec3{x, 0, 0}
	return p
}

// linearClip moves every joint along x from x0 at time 0 to x1 at duration.
func linearClip(t *testing.T, s *Skeleton, name string, duration, x0, x1 float32) *Clip {
	t.Helper()
	c, err := NewClip(s, name, duration, []Sample{
		{Time: 0, Poses: uniform(s.JointCount(), translated(x0))},
		{Time: duration, Poses: uniform(s.JointCount(), translated(x1))},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewSkeletonRejectsOrder(t *testing.T) {
	_, err := NewSkeleton("bad", []Joint{
		{Name: "a", Parent: NoParent},
		{Name: "b", Parent: 2},
		{Name: "c", Parent: 0},
	})
	if !errors.Is(err, ErrCorrupt) {
		t.Error("expected ErrCorrupt", err)
	}
	_, err = NewSkeleton("self", []Joint{{Name: "a", Parent: 0}})
	if !errors.Is(err, ErrCorrupt) {
		t.Error("self parent must be rejected", err)
	}
}

func TestSkeletonQueries(t *testing.T) {
	s, err := NewSkeleton("tree", []Joint{
		{Name: "hips", Parent: NoParent},
		{Name: "spine", Parent: 0},
		{Name: "leg", Parent: 0},
		{Name: "arm", Parent: 1},
		{Name: "foot", Parent: 2},
		{Name: "hand", Parent: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx, err := s.JointIndex("arm"); err != nil || idx != 3 {
		t.Error("JointIndex(arm)", idx, err)
	}
	if _, err := s.JointIndex("tail"); !IsNotFound(err) || errors.Is(err, ErrCorrupt) {
		t.Error("expected ErrNotFound", err)
	}

	cases := []struct {
		joint, ancestor uint32
		want            bool
	}{
		{5, 1, true},
		{3, 1, true},
		{1, 1, true},
		{4, 1, false},
		{2, 1, false},
		{0, 1, false},
		{4, 0, true},
		{4, NoParent, true},
		{9, 0, false},
	}
	for _, c := range cases {
		if got := s.IsInSubtree(c.joint, c.ancestor); got != c.want {
			t.Errorf("IsInSubtree(%d, %d) = %v", c.joint, c.ancestor, got)
		}
	}
}

func TestSlerpUnitLength(t *testing.T) {
	qs := []mgl32.Quat{
		mgl32.QuatIdent(),
		mgl32.QuatRotate(2.5, mgl32.Vec3{0, 1, 0}),
		mgl32.QuatRotate(-1.2, mgl32.Vec3{1, 1, 0}.Normalize()),
		mgl32.QuatRotate(3.1, mgl32.Vec3{0, 0, 1}).Scale(-1),
	}
	for _, a := range qs {
		for _, b := range qs {
			for i := 0; i <= 10; i++ {
				r := slerp(a, b, float32(i)/10)
				if math.Abs(float64(r.Len())-1) > eps {
					t.Fatalf("slerp(%v, %v, %v) length %v", a, b, float32(i)/10, r.Len())
				}
			}
		}
	}
}

func TestSlerpShortestArc(t *testing.T) {
	a := mgl32.QuatIdent()
	b := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}).Scale(-1)
	mid := slerp(a, b, 0.5)
	want := mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1})
	if !mid.ApproxEqualThreshold(want, eps) && !mid.ApproxEqualThreshold(want.Scale(-1), eps) {
		t.Error("expected 45 degrees, got", mid)
	}
}

func TestSampleExactAtTimestamps(t *testing.T) {
	s := chain(t)
	var samples []Sample
	for i := 0; i < 4; i++ {
		p := translated(float32(i * i))
		p.Rotation = mgl32.QuatRotate(float32(i)*0.7, mgl32.Vec3{0, 1, 0})
		samples = append(samples, Sample{Time: float32(i) * 0.5, Poses: uniform(3, p)})
	}
	c, err := NewClip(s, "bend", 1.5, samples)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]JointPose, 3)
	for _, smp := range samples {
		c.SamplePose(smp.Time, dst)
		for j := range dst {
			if dst[j] != smp.Poses[j] {
				t.Errorf("t=%v joint %d: %v != %v", smp.Time, j, dst[j], smp.Poses[j])
			}
		}
	}
}

func TestBracket(t *testing.T) {
	s := chain(t)
	c, err := NewClip(s, "c", 3, []Sample{
		{Time: 0, Poses: uniform(3, IdentityPose())},
		{Time: 1, Poses: uniform(3, IdentityPose())},
		{Time: 2, Poses: uniform(3, IdentityPose())},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		t          float32
		prev, next int
	}{
		{-1, 0, 1}, {0, 0, 1}, {0.5, 0, 1}, {1, 1, 2}, {1.9, 1, 2}, {2, 1, 2}, {2.5, 1, 2},
	} {
		if p, n := c.Bracket(tc.t); p != tc.prev || n != tc.next {
			t.Errorf("Bracket(%v) = %d,%d", tc.t, p, n)
		}
	}
}

func TestSampleClampsAndDegenerate(t *testing.T) {
	s := chain(t)
	c := linearClip(t, s, "move", 1, 0, 2)
	dst := make([]JointPose, 3)
	c.SamplePose(5, dst)
	if dst[0].Position[0] != 2 {
		t.Error("time past the end must clamp", dst[0].Position)
	}

	d, err := NewClip(s, "still", 1, []Sample{
		{Time: 0.5, Poses: uniform(3, translated(1))},
		{Time: 0.5, Poses: uniform(3, translated(7))},
	})
	if err != nil {
		t.Fatal(err)
	}
	d.SamplePose(0.5, dst)
	if dst[0].Position[0] != 1 {
		t.Error("zero interval must return the lower sample", dst[0].Position)
	}

	one, err := NewClip(s, "one", 0, []Sample{{Time: 0, Poses: uniform(3, translated(4))}})
	if err != nil {
		t.Fatal(err)
	}
	one.SamplePose(0.3, dst)
	if dst[2].Position[0] != 4 {
		t.Error("single sample clip", dst[2].Position)
	}
}

func TestNewClipValidation(t *testing.T) {
	s := chain(t)
	ok := uniform(3, IdentityPose())
	bad := [][]Sample{
		nil,
		{{Time: 1, Poses: ok}, {Time: 0.5, Poses: ok}},
		{{Time: 0, Poses: ok}, {Time: 2, Poses: ok}},
		{{Time: 0, Poses: ok[:2]}},
	}
	for i, samples := range bad {
		if _, err := NewClip(s, "bad", 1, samples); !errors.Is(err, ErrCorrupt) {
			t.Errorf("case %d: expected ErrCorrupt, got %v", i, err)
		}
	}
	if _, err := NewClip(s, "nan", float32(math.NaN()), []Sample{{Poses: ok}}); !errors.Is(err, ErrCorrupt) {
		t.Error("NaN duration must be rejected", err)
	}
}

func TestWorldIsParentTimesLocal(t *testing.T) {
	s := chain(t)
	pose := []JointPose{
		{Position: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.QuatRotate(0.3, mgl32.Vec3{0, 0, 1}), Scale: mgl32.Vec3{1, 1, 1}},
		{Position: mgl32.Vec3{0, 2, 0}, Rotation: mgl32.QuatRotate(-0.8, mgl32.Vec3{1, 0, 0}), Scale: mgl32.Vec3{2, 2, 2}},
		{Position: mgl32.Vec3{0, 0, 3}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 0.5, 1}},
	}
	p := NewPipeline(s)
	if _, err := p.Compute(pose); err != nil {
		t.Fatal(err)
	}
	world := p.World()
	for i := 1; i < 3; i++ {
		want := world[i-1].Mul4(pose[i].Matrix())
		if !world[i].ApproxEqualThreshold(want, eps) {
			t.Errorf("joint %d: %v != %v", i, world[i], want)
		}
	}
	if !world[0].ApproxEqualThreshold(pose[0].Matrix(), eps) {
		t.Error("root world must equal its local")
	}
}

func TestPipelineRejectsBadOrder(t *testing.T) {
	s := &Skeleton{Joints: []Joint{{Parent: NoParent}, {Parent: 1}}}
	p := NewPipeline(s)
	if _, err := p.Compute(uniform(2, IdentityPose())); !errors.Is(err, ErrCorrupt) {
		t.Error("expected ErrCorrupt", err)
	}
}

func TestSkinningUsesInverseBind(t *testing.T) {
	bind := mgl32.Translate3D(0, 1, 0)
	s, err := NewSkeleton("s", []Joint{
		{Name: "root", Parent: NoParent, LocalBind: bind, InverseBind: bind.Inv()},
	})
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(s)
	skin, err := p.Compute(s.BindPose())
	if err != nil {
		t.Fatal(err)
	}
	if !skin[0].ApproxEqualThreshold(mgl32.Ident4(), eps) {
		t.Error("bind pose must skin to identity", skin[0])
	}
}

func TestDecomposeMatrix(t *testing.T) {
	want := JointPose{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatRotate(0.9, mgl32.Vec3{1, 2, 0}.Normalize()),
		Scale:    mgl32.Vec3{2, 1, 0.5},
	}
	got := DecomposeMatrix(want.Matrix())
	if !got.Position.ApproxEqualThreshold(want.Position, eps) || !got.Scale.ApproxEqualThreshold(want.Scale, 1e-4) {
		t.Error("bad translation/scale", got)
	}
	if !got.Matrix().ApproxEqualThreshold(want.Matrix(), 1e-4) {
		t.Error("matrix mismatch", got.Matrix(), want.Matrix())
	}
}

func TestSingleStateFullWeight(t *testing.T) {
	s := chain(t)
	c := linearClip(t, s, "walk", 1, 0, 4)
	set, err := NewSet(s, []*Clip{c})
	if err != nil {
		t.Fatal(err)
	}
	if err := set.Play("walk", 1, true); err != nil {
		t.Fatal(err)
	}
	if err := set.Update(0.5); err != nil {
		t.Fatal(err)
	}
	want := make([]JointPose, 3)
	c.SamplePose(0.5, want)
	for j, p := range set.FinalPose() {
		if p != want[j] {
			t.Errorf("joint %d: %v != %v", j, p, want[j])
		}
	}
}

func TestStateLifecycle(t *testing.T) {
	s := chain(t)
	set, err := NewSet(s, []*Clip{linearClip(t, s, "jump", 1, 0, 1), linearClip(t, s, "run", 1, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	st, _ := set.State("jump")
	if st.Enabled || st.Weight != 0 || !set.Finished("jump") {
		t.Fatal("states must start disabled at weight 0")
	}

	set.Play("jump", 0.7, false)
	set.Play("run", 1, true)
	set.Update(0.6)
	if !st.Enabled || st.Time != 0.6 || set.Finished("jump") {
		t.Error("jump should be playing", st)
	}
	set.Update(0.6)
	if st.Enabled || !set.Finished("jump") {
		t.Error("non-looping clip must stop at its end", st)
	}
	run, _ := set.State("run")
	if !run.Enabled || run.Time != 0 {
		t.Error("looping clip must wrap to zero", run)
	}

	set.UpdateWeight("run", 0.25)
	set.Stop("run")
	if run.Enabled || run.Weight != 0.25 {
		t.Error("stop must only disable", run)
	}
	set.Play("run", 1, true)
	if !run.Enabled || run.Time != 0 || run.Weight != 1 {
		t.Error("play must reset time", run)
	}
}

func TestUnknownNamesAreNoOps(t *testing.T) {
	s := chain(t)
	set, err := NewSet(s, []*Clip{linearClip(t, s, "idle", 1, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	for _, err := range []error{
		set.Play("dance", 1, true),
		set.Stop("dance"),
		set.UpdateWeight("dance", 1),
		set.PlaySmooth("dance", 1, 0.2),
		set.SetRootJoint("dance", "spine"),
		set.SetRootJoint("idle", "tail"),
	} {
		if !IsNotFound(err) {
			t.Error("expected ErrNotFound", err)
		}
	}
	st, _ := set.State("idle")
	if st.Enabled || st.Root != NoParent {
		t.Error("failed lookups must not change state", st)
	}
	if !set.Finished("dance") {
		t.Error("unknown clip should report finished")
	}
}

func TestBlendOrderDependence(t *testing.T) {
	s := chain(t)
	a := linearClip(t, s, "a", 1, 1, 1)
	b := linearClip(t, s, "b", 1, 3, 3)

	run := func(clips []*Clip, weight float32) float32 {
		set, err := NewSet(s, clips)
		if err != nil {
			t.Fatal(err)
		}
		set.Play("a", weight, true)
		set.Play("b", weight, true)
		set.Update(0.1)
		return set.FinalPose()[2].Position[0]
	}

	if x := run([]*Clip{a, b}, 1); x != 3 {
		t.Error("last registered state must win at full weight", x)
	}
	if x := run([]*Clip{b, a}, 1); x != 1 {
		t.Error("last registered state must win at full weight", x)
	}
	ab, ba := run([]*Clip{a, b}, 0.5), run([]*Clip{b, a}, 0.5)
	if math.Abs(float64(ab-1.75)) > eps || math.Abs(float64(ba-1.25)) > eps {
		t.Error("unexpected sequential blend", ab, ba)
	}
}

func TestRootJointRestriction(t *testing.T) {
	s := chain(t)
	base := linearClip(t, s, "base", 1, 1, 1)
	upper := linearClip(t, s, "upper", 1, 5, 5)
	set, err := NewSet(s, []*Clip{base, upper})
	if err != nil {
		t.Fatal(err)
	}
	if err := set.SetRootJoint("upper", "spine"); err != nil {
		t.Fatal(err)
	}
	set.Play("base", 1, true)
	set.Play("upper", 1, true)
	set.Update(0.1)
	pose := set.FinalPose()
	if pose[0].Position[0] != 1 || pose[1].Position[0] != 5 || pose[2].Position[0] != 5 {
		t.Error("upper must only drive spine and head", pose)
	}
}

func TestUntouchedJointsKeepLastValue(t *testing.T) {
	s := chain(t)
	full := linearClip(t, s, "full", 1, 2, 2)
	set, _ := NewSet(s, []*Clip{full})
	set.Play("full", 1, true)
	set.Update(0.1)
	set.Stop("full")
	set.Update(0.1)
	if set.FinalPose()[0].Position[0] != 2 {
		t.Error("pose must persist when nothing plays")
	}
	set.Reset()
	if set.FinalPose()[0] != (JointPose{}) {
		t.Error("reset must restore the neutral pose")
	}
}

func TestPlaySmoothRamps(t *testing.T) {
	s := chain(t)
	punch := linearClip(t, s, "punch", 2, 0, 0)
	set, _ := NewSet(s, []*Clip{punch})
	if err := set.PlaySmooth("punch", 1, 0.5); err != nil {
		t.Fatal(err)
	}
	st, _ := set.State("punch")
	steps := []struct{ dt, weight float32 }{
		{0.25, 0.5}, {0.25, 1}, {1, 1}, {0.25, 0.5},
	}
	for _, step := range steps {
		set.Update(step.dt)
		if w := st.EffectiveWeight(); math.Abs(float64(w-step.weight)) > eps {
			t.Errorf("t=%v weight %v, want %v", st.Time, w, step.weight)
		}
	}
	set.Update(0.3)
	if !set.Finished("punch") {
		t.Error("smooth play must not loop")
	}
}

func TestWeightedAverage(t *testing.T) {
	s := chain(t)
	a := linearClip(t, s, "a", 1, 1, 1)
	b := linearClip(t, s, "b", 1, 3, 3)
	for _, clips := range [][]*Clip{{a, b}, {b, a}} {
		set, err := NewSet(s, clips, WithBlendMode(BlendWeightedAverage))
		if err != nil {
			t.Fatal(err)
		}
		set.Play("a", 1, true)
		set.Play("b", 3, true)
		set.Update(0.1)
		p := set.FinalPose()[1]
		if math.Abs(float64(p.Position[0]-2.5)) > eps || math.Abs(float64(p.Rotation.Len()-1)) > eps {
			t.Error("unexpected average", p)
		}
	}
}

func TestSkeletonMismatch(t *testing.T) {
	s1, s2 := chain(t), chain(t)
	c := linearClip(t, s2, "x", 1, 0, 1)
	if _, err := NewSet(s1, []*Clip{c}); !errors.Is(err, ErrSkeletonMismatch) {
		t.Error("expected ErrSkeletonMismatch", err)
	}
	if _, err := NewAnimator(s1, []*Clip{c}); !errors.Is(err, ErrSkeletonMismatch) {
		t.Error("expected ErrSkeletonMismatch", err)
	}
}

func TestTransitionEndpoints(t *testing.T) {
	s := chain(t)
	a := linearClip(t, s, "a", 1, 1, 1)
	b := linearClip(t, s, "b", 1, 5, 9)
	an, err := NewAnimator(s, []*Clip{a, b}, WithTransitionDuration(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if an.Current() != nil {
		t.Fatal("animator must start idle")
	}
	if err := an.Play("a"); err != nil || an.Current() != a || an.Transition().Active {
		t.Fatal("first play must start directly", err)
	}
	an.Update(0.25)
	if err := an.Play("a"); err != nil || an.Transition().Active {
		t.Error("replaying the current clip is a no-op")
	}

	if err := an.Play("b"); err != nil {
		t.Fatal(err)
	}
	tr := an.Transition()
	if !tr.Active || tr.Source != a || tr.Destination != b || tr.SourceTime != 0.25 {
		t.Fatal("transition not started", tr)
	}
	if x := an.Pose()[0].Position[0]; x != 1 {
		t.Error("at time 0 the output is the captured source pose", x)
	}

	an.Update(0.25)
	if x := an.Pose()[0].Position[0]; math.Abs(float64(x-3)) > eps {
		t.Error("halfway pose", x)
	}
	an.Update(0.25)
	for j, p := range an.Pose() {
		if p != b.FirstPose()[j] {
			t.Errorf("joint %d: at full duration the output is the destination's first sample", j)
		}
	}
	if tr.Active || an.Current() != b || an.Time() != 0.5 {
		t.Error("control must pass to the destination", tr.Active, an.Time())
	}

	an.Update(0.1)
	if x := an.Pose()[0].Position[0]; math.Abs(float64(x-7.4)) > 1e-4 {
		t.Error("destination must continue from its own cursor", x)
	}

	if err := an.Play("missing"); !IsNotFound(err) {
		t.Error("expected ErrNotFound", err)
	}
}

func TestTransitionRetarget(t *testing.T) {
	s := chain(t)
	a := linearClip(t, s, "a", 1, 0, 0)
	b := linearClip(t, s, "b", 1, 4, 4)
	c := linearClip(t, s, "c", 1, 8, 8)
	an, _ := NewAnimator(s, []*Clip{a, b, c}, WithTransitionDuration(1))
	an.Play("a")
	an.Play("b")
	an.Update(0.5)
	an.Play("c")
	tr := an.Transition()
	if tr.Source != b || tr.Destination != c || tr.Time != 0 {
		t.Fatal("retarget must start from the in-flight pose", tr)
	}
	if x := an.Pose()[0].Position[0]; math.Abs(float64(x-2)) > eps {
		t.Error("captured pose", x)
	}
}

// Two samples written to a .twa file, loaded back and sampled halfway.
func TestFileRoundTripMidpoint(t *testing.T) {
	ident := ToFileMatrix(mgl32.Ident4())
	doc := &tween.Document{
		SkeletonName: "body",
		Joints: []*tween.Joint{
			{Name: "root", Parent: tween.NoParent, Local: ident, InverseBind: ident},
			{Name: "spine", Parent: 0, Local: ident, InverseBind: ident},
			{Name: "head", Parent: 1, Local: ident, InverseBind: ident},
		},
		Animations: []*tween.Animation{{
			Name:     "shift",
			Duration: 1,
			Samples: []*tween.Sample{
				{Keys: []tween.Key{{Joint: 1, Time: 0, Rotation: [4]float32{1, 0, 0, 0}, Scale: [3]float32{1, 1, 1}}}},
				{Keys: []tween.Key{{Joint: 1, Time: 1, Position: [3]float32{2, 4, 6}, Rotation: [4]float32{1, 0, 0, 0}, Scale: [3]float32{1, 1, 1}}}},
			},
		}},
	}
	var buf bytes.Buffer
	if err := tween.WriteAnimation(&buf, doc); err != nil {
		t.Fatal(err)
	}
	parsed, err := tween.ParseAnimation(&buf)
	if err != nil {
		t.Fatal(err)
	}
	skel, clips, err := FromDocument(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if skel.JointCount() != 3 || len(clips) != 1 {
		t.Fatal("unexpected content", skel.JointCount(), len(clips))
	}
	dst := make([]JointPose, 3)
	clips[0].SamplePose(0.5, dst)
	if !dst[1].Position.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, eps) {
		t.Error("midpoint", dst[1].Position)
	}
	if dst[0] != IdentityPose() && !dst[0].Rotation.ApproxEqualThreshold(mgl32.QuatIdent(), eps) {
		t.Error("unkeyed joints take the bind pose", dst[0])
	}

	back := ToDocument(skel, clips)
	if len(back.Animations[0].Samples[1].Keys) != 3 || back.Animations[0].Samples[1].Keys[1].Position != [3]float32{2, 4, 6} {
		t.Error("ToDocument", back.Animations[0].Samples[1])
	}
}

func TestFromDocumentRejectsBadKeys(t *testing.T) {
	ident := ToFileMatrix(mgl32.Ident4())
	doc := &tween.Document{
		Joints: []*tween.Joint{{Name: "root", Parent: tween.NoParent, Local: ident, InverseBind: ident}},
		Animations: []*tween.Animation{{
			Name: "x", Duration: 1,
			Samples: []*tween.Sample{{Keys: []tween.Key{{Joint: 4}}}},
		}},
	}
	if _, _, err := FromDocument(doc); !errors.Is(err, ErrCorrupt) {
		t.Error("out of range joint", err)
	}
	doc.Animations[0].Samples = []*tween.Sample{{}}
	if _, _, err := FromDocument(doc); !errors.Is(err, ErrCorrupt) {
		t.Error("empty sample", err)
	}
	doc.Animations[0].Samples = []*tween.Sample{{Keys: []tween.Key{{Joint: 0, Time: 2}}}}
	if _, _, err := FromDocument(doc); !errors.Is(err, ErrCorrupt) {
		t.Error("timestamp past duration", err)
	}
}

// Head turns from identity to 90 degrees over one second; half a second in the
// skinning matrix is the 45 degree rotation.
func TestIdleHeadRotation(t *testing.T) {
	s := chain(t)
	rest := uniform(3, IdentityPose())
	turned := uniform(3, IdentityPose())
	turned[2].Rotation = mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	idle, err := NewClip(s, "idle", 1, []Sample{{Time: 0, Poses: rest}, {Time: 1, Poses: turned}})
	if err != nil {
		t.Fatal(err)
	}
	set, err := NewSet(s, []*Clip{idle})
	if err != nil {
		t.Fatal(err)
	}
	if err := set.Play("idle", 1, true); err != nil {
		t.Fatal(err)
	}
	if err := set.Update(0.5); err != nil {
		t.Fatal(err)
	}
	m := set.Transforms()
	if !m[0].ApproxEqualThreshold(mgl32.Ident4(), eps) || !m[1].ApproxEqualThreshold(mgl32.Ident4(), eps) {
		t.Error("root and spine must stay identity", m[0], m[1])
	}
	want := mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1}).Mat4()
	if !m[2].ApproxEqualThreshold(want, eps) {
		t.Error("head must be rotated 45 degrees", m[2])
	}
	v := m[2].Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	r := float32(math.Sqrt2 / 2)
	if !v.Vec3().ApproxEqualThreshold(mgl32.Vec3{r, r, 0}, eps) {
		t.Error("rotated x axis", v)
	}

	set.Release()
	if err := set.Update(0.1); err != nil {
		t.Error("update after release", err)
	}
}

func TestSecondRootIsDriven(t *testing.T) {
	s, err := NewSkeleton("props", []Joint{
		{Name: "a", Parent: NoParent, LocalBind: mgl32.Ident4(), InverseBind: mgl32.Ident4()},
		{Name: "b", Parent: NoParent, LocalBind: mgl32.Ident4(), InverseBind: mgl32.Ident4()},
	})
	if err != nil {
		t.Fatal(err)
	}
	set, _ := NewSet(s, []*Clip{linearClip(t, s, "idle", 1, 2, 2)})
	set.Play("idle", 1, true)
	if err := set.Update(0.1); err != nil {
		t.Fatal(err)
	}
	for j, p := range set.FinalPose() {
		if p != translated(2) {
			t.Errorf("joint %d not driven: %v", j, p)
		}
	}
	if !set.Transforms()[1].ApproxEqualThreshold(mgl32.Translate3D(2, 0, 0), eps) {
		t.Error("second root skinning", set.Transforms()[1])
	}
}

func TestStopSmooth(t *testing.T) {
	s := chain(t)
	set, _ := NewSet(s, []*Clip{linearClip(t, s, "walk", 1, 0, 0)})
	set.Play("walk", 1, true)
	if err := set.StopSmooth("walk", 0.5); err != nil {
		t.Fatal(err)
	}
	st, _ := set.State("walk")
	set.Update(0.25)
	if w := st.EffectiveWeight(); !st.Enabled || math.Abs(float64(w-0.5)) > eps {
		t.Error("halfway through the fade", st.Enabled, w)
	}
	set.StopSmooth("walk", 2)
	if st.EffectiveWeight() > 0.5+eps {
		t.Error("a longer fade must not restore the weight", st.EffectiveWeight())
	}
	set.StopSmooth("walk", 0.1)
	if w := st.EffectiveWeight(); math.Abs(float64(w-0.5)) > eps {
		t.Error("a shorter fade keeps the current level", w)
	}
	set.Update(0.25)
	if !set.Finished("walk") {
		t.Error("faded clip must stop")
	}

	set.Play("walk", 1, true)
	set.Update(0.25)
	if w := st.EffectiveWeight(); !st.Enabled || w != 1 {
		t.Error("play clears the fade", w)
	}
	if err := set.StopSmooth("walk", 0); err != nil || !set.Finished("walk") {
		t.Error("zero fade stops at once", err)
	}
	if err := set.StopSmooth("run", 0.5); !IsNotFound(err) {
		t.Error("expected ErrNotFound", err)
	}
}

func TestMixPoseOvershoot(t *testing.T) {
	a := translated(0)
	b := translated(1)
	b.Rotation = mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0})
	b.Scale = mgl32.Vec3{2, 2, 2}
	p := MixPose(a, b, 2)
	if p.Position != (mgl32.Vec3{2, 0, 0}) || p.Scale != (mgl32.Vec3{3, 3, 3}) {
		t.Error("position and scale extrapolate", p)
	}
	if p.Rotation != b.Rotation {
		t.Error("rotation stops at the target", p.Rotation)
	}
}

func TestFirstPlayComputesTransforms(t *testing.T) {
	s := chain(t)
	an, _ := NewAnimator(s, []*Clip{linearClip(t, s, "a", 1, 1, 1)})
	if err := an.Play("a"); err != nil {
		t.Fatal(err)
	}
	if !an.Transforms()[0].ApproxEqualThreshold(mgl32.Translate3D(1, 0, 0), eps) {
		t.Error("skinning must follow the first play", an.Transforms()[0])
	}
	if !an.WorldTransforms()[2].ApproxEqualThreshold(mgl32.Translate3D(3, 0, 0), eps) {
		t.Error("world", an.WorldTransforms()[2])
	}
}
