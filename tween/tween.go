// Package tween reads and writes the TWEEN binary model (.twm) and animation (.twa) files.
package tween

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Magic is the first u32 of every TWEEN file ("TWEE" on disk).
const Magic uint32 = 'T' | 'W'<<8 | 'E'<<16 | 'E'<<24

const (
	FlagModel      uint32 = 1 << 0
	FlagSkeleton   uint32 = 1 << 1
	FlagAnimations uint32 = 1 << 2
)

// NoParent marks a root joint.
const NoParent uint32 = 0xFFFFFFFF

// MaxInfluences is the number of joint slots per vertex.
const MaxInfluences = 4

// maxStringLen guards against corrupted length prefixes.
const maxStringLen = 1 << 16

var (
	ErrBadMagic      = errors.New("tween: bad magic")
	ErrMissingFlag   = errors.New("tween: required flag not set")
	ErrInvalidFormat = errors.New("tween: invalid format")
)

type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    [3]float32
	Joints   [MaxInfluences]int32
	Weights  [MaxInfluences]float32
}

// NewVertex returns a white vertex with empty influence slots.
func NewVertex() *Vertex {
	return &Vertex{
		Color:  [3]float32{1, 1, 1},
		Joints: [MaxInfluences]int32{-1, -1, -1, -1},
	}
}

// AddWeight stores an influence in the first free slot. When all slots are used
// the smallest weight is replaced if w is larger.
func (v *Vertex) AddWeight(joint int32, w float32) {
	min := 0
	for i := 0; i < MaxInfluences; i++ {
		if v.Joints[i] < 0 {
			v.Joints[i] = joint
			v.Weights[i] = w
			return
		}
		if v.Weights[i] < v.Weights[min] {
			min = i
		}
	}
	if w > v.Weights[min] {
		v.Joints[min] = joint
		v.Weights[min] = w
	}
}

type VertexWeight struct {
	Vertex uint32
	Weight float32
}

// JointWeights is one entry of a mesh's joint-weight table.
type JointWeights struct {
	Joint       uint32
	Weights     []VertexWeight
	InverseBind [16]float32 // row-major
}

type Mesh struct {
	Material string
	Vertices []*Vertex
	Indices  []uint32
	Joints   []*JointWeights
}

// Model is the content of a .twm file.
type Model struct {
	Flags        uint32
	Meshes       []*Mesh
	SkeletonName string
	JointCount   uint32
}

func (m *Model) Skinned() bool {
	return m.Flags&FlagSkeleton != 0
}

type Joint struct {
	Name        string
	Parent      uint32
	Local       [16]float32 // row-major
	InverseBind [16]float32 // row-major
}

// Key is one joint's transform inside a sample.
type Key struct {
	Joint    uint32
	Time     float32
	Position [3]float32
	Rotation [4]float32 // w, x, y, z
	Scale    [3]float32
}

type Sample struct {
	Keys []Key
}

type Animation struct {
	Name     string
	Duration float32
	Samples  []*Sample
}

// Document is the content of a .twa file.
type Document struct {
	Flags        uint32
	SkeletonName string
	Joints       []*Joint
	Animations   []*Animation
}

func (d *Document) FindAnimation(name string) *Animation {
	for _, a := range d.Animations {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Option configures a parser.
type Option func(*baseParser)

// WithEncoding decodes joint names, clip names and material paths with enc.
func WithEncoding(enc encoding.Encoding) Option {
	return func(p *baseParser) {
		p.enc = enc
	}
}

// EncodingByName resolves a WHATWG encoding label such as "shift_jis".
// Empty and "raw" return nil (bytes are kept as is).
func EncodingByName(name string) (encoding.Encoding, error) {
	if name == "" || name == "raw" {
		return nil, nil
	}
	return htmlindex.Get(name)
}
