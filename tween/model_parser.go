package tween

import (
	"io"

	"github.com/pkg/errors"
)

// ModelParser is parser for .twm models.
type ModelParser struct {
	baseParser
}

func NewModelParser(r io.Reader, opts ...Option) *ModelParser {
	return &ModelParser{baseParser: newBaseParser(r, opts)}
}

// ParseModel reads a whole .twm stream.
func ParseModel(r io.Reader, opts ...Option) (*Model, error) {
	return NewModelParser(r, opts...).Parse()
}

func (p *ModelParser) Parse() (*Model, error) {
	var m Model
	m.Flags = p.readHeader(FlagModel)
	meshCount := p.readUint32()
	if p.err != nil {
		return nil, errors.Wrap(p.err, "model header")
	}

	type counts struct{ vertices, indices uint32 }
	sizes := make([]counts, 0, capacity(meshCount))
	for i := uint32(0); i < meshCount && p.err == nil; i++ {
		var c counts
		c.vertices = p.readUint32()
		c.indices = p.readUint32()
		sizes = append(sizes, c)
		m.Meshes = append(m.Meshes, &Mesh{Material: p.readString()})
	}

	for i, mesh := range m.Meshes {
		mesh.Vertices = make([]*Vertex, 0, capacity(sizes[i].vertices))
		for j := uint32(0); j < sizes[i].vertices && p.err == nil; j++ {
			v := NewVertex()
			p.read(&v.Position)
			p.read(&v.Normal)
			p.read(&v.UV)
			mesh.Vertices = append(mesh.Vertices, v)
		}
		mesh.Indices = make([]uint32, 0, capacity(sizes[i].indices))
		for j := uint32(0); j < sizes[i].indices && p.err == nil; j++ {
			idx := p.readUint32()
			if p.err == nil && idx >= sizes[i].vertices {
				p.err = errors.Wrapf(ErrInvalidFormat, "mesh %d: index %d out of range", i, idx)
			}
			mesh.Indices = append(mesh.Indices, idx)
		}
	}
	if p.err != nil {
		return nil, errors.Wrap(p.err, "model meshes")
	}

	if m.Skinned() {
		if err := p.parseWeights(&m); err != nil {
			return nil, errors.Wrap(err, "model weights")
		}
	}
	return &m, nil
}

func (p *ModelParser) parseWeights(m *Model) error {
	m.SkeletonName = p.readString()
	m.JointCount = p.readUint32()
	for i, mesh := range m.Meshes {
		n := p.readUint32()
		for j := uint32(0); j < n && p.err == nil; j++ {
			jw := &JointWeights{Joint: p.readUint32()}
			count := p.readUint32()
			if p.err == nil && jw.Joint >= m.JointCount {
				return errors.Wrapf(ErrInvalidFormat, "mesh %d: joint %d >= %d", i, jw.Joint, m.JointCount)
			}
			jw.Weights = make([]VertexWeight, 0, capacity(count))
			for k := uint32(0); k < count && p.err == nil; k++ {
				var w VertexWeight
				w.Vertex = p.readUint32()
				w.Weight = p.readFloat()
				if p.err != nil {
					break
				}
				if int(w.Vertex) >= len(mesh.Vertices) {
					return errors.Wrapf(ErrInvalidFormat, "mesh %d: weight vertex %d out of range", i, w.Vertex)
				}
				mesh.Vertices[w.Vertex].AddWeight(int32(jw.Joint), w.Weight)
				jw.Weights = append(jw.Weights, w)
			}
			jw.InverseBind = p.readMatrix()
			mesh.Joints = append(mesh.Joints, jw)
		}
	}
	return p.err
}
