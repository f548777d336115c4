package tween

import (
	"io"

	"github.com/pkg/errors"
)

// WriteModel writes m in .twm layout. Vertex colors and influence slots are not
// stored; influences are rebuilt from the joint-weight tables on load.
func WriteModel(w io.Writer, m *Model) error {
	p := &baseWriter{w: w}
	flags := m.Flags | FlagModel
	if m.JointCount > 0 {
		flags |= FlagSkeleton
	}
	p.writeUint32(Magic)
	p.writeUint32(flags)
	p.writeUint32(uint32(len(m.Meshes)))
	for _, mesh := range m.Meshes {
		p.writeUint32(uint32(len(mesh.Vertices)))
		p.writeUint32(uint32(len(mesh.Indices)))
		p.writeString(mesh.Material)
	}
	for _, mesh := range m.Meshes {
		for _, v := range mesh.Vertices {
			p.write(&v.Position)
			p.write(&v.Normal)
			p.write(&v.UV)
		}
		p.write(mesh.Indices)
	}
	if flags&FlagSkeleton != 0 {
		p.writeString(m.SkeletonName)
		p.writeUint32(m.JointCount)
		for _, mesh := range m.Meshes {
			p.writeUint32(uint32(len(mesh.Joints)))
			for _, jw := range mesh.Joints {
				p.writeUint32(jw.Joint)
				p.writeUint32(uint32(len(jw.Weights)))
				for _, vw := range jw.Weights {
					p.writeUint32(vw.Vertex)
					p.writeFloat(vw.Weight)
				}
				p.write(&jw.InverseBind)
			}
		}
	}
	return errors.Wrap(p.err, "write model")
}

// WriteAnimation writes doc in .twa layout.
func WriteAnimation(w io.Writer, doc *Document) error {
	p := &baseWriter{w: w}
	p.writeUint32(Magic)
	p.writeUint32(doc.Flags | FlagAnimations)
	p.writeString(doc.SkeletonName)
	p.writeUint32(uint32(len(doc.Joints)))
	for _, j := range doc.Joints {
		p.writeUint32(j.Parent)
		p.writeString(j.Name)
		p.write(&j.Local)
		p.write(&j.InverseBind)
	}
	p.writeUint32(uint32(len(doc.Animations)))
	for _, a := range doc.Animations {
		p.writeString(a.Name)
		p.writeFloat(a.Duration)
		p.writeUint32(uint32(len(a.Samples)))
		for _, s := range a.Samples {
			p.writeUint32(uint32(len(s.Keys)))
			for i := range s.Keys {
				k := &s.Keys[i]
				p.writeUint32(k.Joint)
				p.writeFloat(k.Time)
				p.write(&k.Position)
				p.write(&k.Rotation)
				p.write(&k.Scale)
			}
		}
	}
	return errors.Wrap(p.err, "write animation")
}
