package anim

import (
	"github.com/go-gl/mathgl/mgl32"
)

// JointPose is a local transform of one joint.
type JointPose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func IdentityPose() JointPose {
	return JointPose{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes translation * rotation * scale.
func (p JointPose) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(p.Position[0], p.Position[1], p.Position[2])
	s := mgl32.Scale3D(p.Scale[0], p.Scale[1], p.Scale[2])
	return t.Mul4(p.Rotation.Mat4()).Mul4(s)
}

// DecomposeMatrix splits an affine matrix without shear into a JointPose.
func DecomposeMatrix(m mgl32.Mat4) JointPose {
	p := JointPose{
		Position: m.Col(3).Vec3(),
		Scale:    mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()},
	}
	var cols [3]mgl32.Vec4
	for i := range cols {
		cols[i] = m.Col(i)
		if p.Scale[i] != 0 {
			cols[i] = cols[i].Mul(1 / p.Scale[i])
		}
		cols[i][3] = 0
	}
	r := mgl32.Mat4FromCols(cols[0], cols[1], cols[2], mgl32.Vec4{0, 0, 0, 1})
	p.Rotation = mgl32.Mat4ToQuat(r).Normalize()
	return p
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	if t == 0 {
		return a
	}
	if t == 1 {
		return b
	}
	return a.Mul(1 - t).Add(b.Mul(t))
}

// slerp interpolates along the shorter arc and returns a unit quaternion.
func slerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, t).Normalize()
}

// MixPose blends a toward b by t. Position and scale are not clamped and
// extrapolate for t outside [0,1]; rotation is clamped and stays at a or b.
func MixPose(a, b JointPose, t float32) JointPose {
	return JointPose{
		Position: lerpVec3(a.Position, b.Position, t),
		Rotation: slerp(a.Rotation, b.Rotation, t),
		Scale:    lerpVec3(a.Scale, b.Scale, t),
	}
}
