// Package anim samples, blends and crossfades keyframed skeletal clips and turns the
// resulting local pose into skinning matrices.
package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// NoParent marks a root joint. As an ancestor argument it selects the whole skeleton.
const NoParent uint32 = 0xFFFFFFFF

type Joint struct {
	Name        string
	Parent      uint32
	LocalBind   mgl32.Mat4
	InverseBind mgl32.Mat4
}

// Skeleton is an immutable joint array stored parent-before-child.
type Skeleton struct {
	Name   string
	Joints []Joint

	bindPose []JointPose
}

// NewSkeleton validates the parent ordering of joints.
func NewSkeleton(name string, joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, errors.Wrapf(ErrCorrupt, "skeleton %q has no joints", name)
	}
	for i, j := range joints {
		if j.Parent != NoParent && j.Parent >= uint32(i) {
			return nil, errors.Wrapf(ErrCorrupt, "joint %d (%s): parent %d does not precede it", i, j.Name, j.Parent)
		}
	}
	s := &Skeleton{Name: name, Joints: joints}
	s.bindPose = make([]JointPose, len(joints))
	for i := range joints {
		s.bindPose[i] = DecomposeMatrix(joints[i].LocalBind)
	}
	return s, nil
}

func (s *Skeleton) JointCount() int {
	return len(s.Joints)
}

// JointIndex returns the index of the first joint called name.
func (s *Skeleton) JointIndex(name string) (uint32, error) {
	for i := range s.Joints {
		if s.Joints[i].Name == name {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(ErrNotFound, "joint %q", name)
}

// IsInSubtree reports whether joint is ancestor or one of its descendants.
// Descendants always have larger indices, so the walk stops once it drops below ancestor.
func (s *Skeleton) IsInSubtree(joint, ancestor uint32) bool {
	if ancestor == NoParent {
		return true
	}
	n := uint32(len(s.Joints))
	if joint >= n || ancestor >= n || joint < ancestor {
		return false
	}
	for cur := joint; ; {
		if cur == ancestor {
			return true
		}
		parent := s.Joints[cur].Parent
		if parent == NoParent || parent < ancestor {
			return false
		}
		cur = parent
	}
}

// BindPose returns the local bind transform of every joint. The slice is shared.
func (s *Skeleton) BindPose() []JointPose {
	return s.bindPose
}
