package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Pipeline turns a local pose into world and skinning matrices.
type Pipeline struct {
	skeleton *Skeleton
	local    []mgl32.Mat4
	world    []mgl32.Mat4
	skinning []mgl32.Mat4
}

func NewPipeline(skel *Skeleton) *Pipeline {
	n := skel.JointCount()
	p := &Pipeline{
		skeleton: skel,
		local:    make([]mgl32.Mat4, n),
		world:    make([]mgl32.Mat4, n),
		skinning: make([]mgl32.Mat4, n),
	}
	for i := 0; i < n; i++ {
		p.local[i] = mgl32.Ident4()
		p.world[i] = mgl32.Ident4()
		p.skinning[i] = mgl32.Ident4()
	}
	return p
}

// Compute walks the joints parent-first and returns the skinning matrices
// (world * inverse bind). Nothing is written when the hierarchy is out of order.
func (p *Pipeline) Compute(pose []JointPose) ([]mgl32.Mat4, error) {
	joints := p.skeleton.Joints
	if len(pose) != len(joints) || len(p.world) != len(joints) {
		return nil, errors.Wrapf(ErrCorrupt, "pose has %d joints, skeleton %d", len(pose), len(joints))
	}
	for i := range joints {
		if parent := joints[i].Parent; parent != NoParent && parent >= uint32(i) {
			return nil, errors.Wrapf(ErrCorrupt, "joint %d: parent %d does not precede it", i, parent)
		}
	}
	for i := range joints {
		p.local[i] = pose[i].Matrix()
		if parent := joints[i].Parent; parent == NoParent {
			p.world[i] = p.local[i]
		} else {
			p.world[i] = p.world[parent].Mul4(p.local[i])
		}
		p.skinning[i] = p.world[i].Mul4(joints[i].InverseBind)
	}
	return p.skinning, nil
}

func (p *Pipeline) Local() []mgl32.Mat4 {
	return p.local
}

func (p *Pipeline) World() []mgl32.Mat4 {
	return p.world
}

func (p *Pipeline) Skinning() []mgl32.Mat4 {
	return p.skinning
}

func (p *Pipeline) Release() {
	p.local = nil
	p.world = nil
	p.skinning = nil
}
