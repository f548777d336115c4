package anim

import (
	"bufio"
	"os"

	"github.com/binzume/tweenanim/tween"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// LoadFile reads a .twa file and builds its skeleton and clips.
func LoadFile(path string, opts ...tween.Option) (*Skeleton, []*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	doc, err := tween.ParseAnimation(bufio.NewReader(f), opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, path)
	}
	return FromDocument(doc)
}

// FileMatrix converts a row-major matrix as stored in TWEEN files.
func FileMatrix(m [16]float32) mgl32.Mat4 {
	return mgl32.Mat4(m).Transpose()
}

// ToFileMatrix is the inverse of FileMatrix.
func ToFileMatrix(m mgl32.Mat4) [16]float32 {
	return [16]float32(m.Transpose())
}

// FromDocument validates a parsed animation document. Joints a sample has no key
// for take their bind pose.
func FromDocument(doc *tween.Document) (*Skeleton, []*Clip, error) {
	joints := make([]Joint, len(doc.Joints))
	for i, j := range doc.Joints {
		joints[i] = Joint{
			Name:        j.Name,
			Parent:      j.Parent,
			LocalBind:   FileMatrix(j.Local),
			InverseBind: FileMatrix(j.InverseBind),
		}
	}
	skel, err := NewSkeleton(doc.SkeletonName, joints)
	if err != nil {
		return nil, nil, err
	}

	clips := make([]*Clip, 0, len(doc.Animations))
	for _, a := range doc.Animations {
		samples := make([]Sample, len(a.Samples))
		for i, s := range a.Samples {
			if len(s.Keys) == 0 || len(s.Keys) > len(joints) {
				return nil, nil, errors.Wrapf(ErrCorrupt, "clip %q sample %d: %d keys for %d joints",
					a.Name, i, len(s.Keys), len(joints))
			}
			poses := make([]JointPose, len(joints))
			copy(poses, skel.BindPose())
			for _, k := range s.Keys {
				if k.Joint >= uint32(len(joints)) {
					return nil, nil, errors.Wrapf(ErrCorrupt, "clip %q sample %d: joint %d out of range", a.Name, i, k.Joint)
				}
				poses[k.Joint] = JointPose{
					Position: mgl32.Vec3(k.Position),
					Rotation: mgl32.Quat{W: k.Rotation[0], V: mgl32.Vec3{k.Rotation[1], k.Rotation[2], k.Rotation[3]}}.Normalize(),
					Scale:    mgl32.Vec3(k.Scale),
				}
			}
			samples[i] = Sample{Time: s.Keys[0].Time, Poses: poses}
		}
		clip, err := NewClip(skel, a.Name, a.Duration, samples)
		if err != nil {
			return nil, nil, err
		}
		clips = append(clips, clip)
	}
	return skel, clips, nil
}

// ToDocument is the inverse of FromDocument; every sample keys every joint.
func ToDocument(skel *Skeleton, clips []*Clip) *tween.Document {
	doc := &tween.Document{SkeletonName: skel.Name}
	for _, j := range skel.Joints {
		doc.Joints = append(doc.Joints, &tween.Joint{
			Name:        j.Name,
			Parent:      j.Parent,
			Local:       ToFileMatrix(j.LocalBind),
			InverseBind: ToFileMatrix(j.InverseBind),
		})
	}
	for _, c := range clips {
		a := &tween.Animation{Name: c.Name, Duration: c.Duration}
		for _, s := range c.Samples {
			ts := &tween.Sample{Keys: make([]tween.Key, len(s.Poses))}
			for j, p := range s.Poses {
				ts.Keys[j] = tween.Key{
					Joint:    uint32(j),
					Time:     s.Time,
					Position: p.Position,
					Rotation: [4]float32{p.Rotation.W, p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2]},
					Scale:    p.Scale,
				}
			}
			a.Samples = append(a.Samples, ts)
		}
		doc.Animations = append(doc.Animations, a)
	}
	return doc
}
