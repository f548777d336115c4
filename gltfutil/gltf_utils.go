package gltfutil

import (
	"encoding/binary"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	gltfbinary "github.com/qmuntal/gltf/binary"
	"github.com/qmuntal/gltf/modeler"
)

const matrixSize = 64

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// WriteMatrices stores mats as a tightly packed MAT4 accessor and returns its index.
// The buffer view has no target, as required for inverse bind matrices.
func WriteMatrices(doc *gltf.Document, mats []mgl32.Mat4) uint32 {
	a := make([][4][4]float32, len(mats))
	for i, m := range mats {
		a[i] = [4][4]float32{m.Col(0), m.Col(1), m.Col(2), m.Col(3)}
	}
	return modeler.WriteAccessor(doc, gltf.TargetNone, a)
}

func matrixData(doc *gltf.Document, index uint32) ([]byte, uint32, int, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, 0, 0, errors.New("accessor out of range")
	}
	acr := doc.Accessors[index]
	if acr.Type != gltf.AccessorMat4 || acr.BufferView == nil {
		return nil, 0, 0, errors.New("not a MAT4 accessor")
	}
	view := doc.BufferViews[*acr.BufferView]
	stride := view.ByteStride
	if stride == 0 {
		stride = matrixSize
	}
	data := doc.Buffers[view.Buffer].Data
	start := view.ByteOffset + acr.ByteOffset
	if int(start+stride*(acr.Count-1)+matrixSize) > len(data) {
		return nil, 0, 0, errors.New("buffer too short")
	}
	return data[start:], stride, int(acr.Count), nil
}

func ReadMatrices(doc *gltf.Document, index uint32) ([]mgl32.Mat4, error) {
	data, stride, count, err := matrixData(doc, index)
	if err != nil {
		return nil, err
	}
	mats := make([]mgl32.Mat4, count)
	for i := range mats {
		mats[i] = readMatrix(data[uint32(i)*stride:])
	}
	return mats, nil
}

func readMatrix(b []byte) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return m
}

func writeMatrix(b []byte, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
}

// Transform scales positions, node translations, inverse bind matrices and
// translation channels uniformly by scale.
func Transform(doc *gltf.Document, scale float32) {
	if scale == 1 {
		return
	}
	scaleMat := mgl32.Scale3D(scale, scale, scale)

	positions := map[uint32]bool{}
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			if a, ok := p.Attributes["POSITION"]; ok {
				positions[a] = true
			}
		}
	}
	for _, a := range doc.Animations {
		for _, ch := range a.Channels {
			if ch.Target.Path != gltf.TRSTranslation || ch.Sampler == nil {
				continue
			}
			if out := a.Samplers[*ch.Sampler].Output; out != nil {
				positions[*out] = len(doc.Accessors[*out].Min) > 0
			}
		}
	}
	for a, bounds := range positions {
		if err := scaleVec3(doc, a, scale, bounds); err != nil {
			log.Printf("[gltf] accessor %d: %v", a, err)
		}
	}

	for _, node := range doc.Nodes {
		t := mgl32.Vec3(node.Translation).Mul(scale)
		node.Translation = t
	}
	for _, skin := range doc.Skins {
		if skin.InverseBindMatrices == nil {
			continue
		}
		data, stride, count, err := matrixData(doc, *skin.InverseBindMatrices)
		if err != nil {
			log.Printf("[gltf] skin %q: %v", skin.Name, err)
			continue
		}
		for i := 0; i < count; i++ {
			b := data[uint32(i)*stride:]
			m := readMatrix(b)
			writeMatrix(b, scaleMat.Mul4(m).Mul4(scaleMat.Inv()))
		}
	}
}

func scaleVec3(doc *gltf.Document, index uint32, scale float32, bounds bool) error {
	acr := doc.Accessors[index]
	if acr.Sparse != nil || acr.BufferView == nil {
		return errors.New("unsupported accessor")
	}
	pos, err := modeler.ReadPosition(doc, acr, [][3]float32{})
	if err != nil {
		return err
	}
	min := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := range pos {
		pos[i] = mgl32.Vec3(pos[i]).Mul(scale)
		for t, v := range pos[i] {
			min[t] = float32(math.Min(float64(min[t]), float64(v)))
			max[t] = float32(math.Max(float64(max[t]), float64(v)))
		}
	}
	if bounds {
		acr.Min = min[:]
		acr.Max = max[:]
	}
	view := doc.BufferViews[*acr.BufferView]
	buffer := doc.Buffers[view.Buffer]
	return gltfbinary.Write(buffer.Data[view.ByteOffset+acr.ByteOffset:], view.ByteStride, pos)
}
