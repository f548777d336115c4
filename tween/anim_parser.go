package tween

import (
	"io"

	"github.com/pkg/errors"
)

// AnimationParser is parser for .twa animation files.
type AnimationParser struct {
	baseParser
}

func NewAnimationParser(r io.Reader, opts ...Option) *AnimationParser {
	return &AnimationParser{baseParser: newBaseParser(r, opts)}
}

// ParseAnimation reads a whole .twa stream.
func ParseAnimation(r io.Reader, opts ...Option) (*Document, error) {
	return NewAnimationParser(r, opts...).Parse()
}

func (p *AnimationParser) Parse() (*Document, error) {
	var doc Document
	doc.Flags = p.readHeader(FlagAnimations)
	doc.SkeletonName = p.readString()
	jointCount := p.readUint32()
	if p.err != nil {
		return nil, errors.Wrap(p.err, "animation header")
	}

	doc.Joints = make([]*Joint, 0, capacity(jointCount))
	for i := uint32(0); i < jointCount && p.err == nil; i++ {
		var j Joint
		j.Parent = p.readUint32()
		j.Name = p.readString()
		j.Local = p.readMatrix()
		j.InverseBind = p.readMatrix()
		doc.Joints = append(doc.Joints, &j)
	}
	if p.err != nil {
		return nil, errors.Wrap(p.err, "joints")
	}

	animCount := p.readUint32()
	for i := uint32(0); i < animCount && p.err == nil; i++ {
		doc.Animations = append(doc.Animations, p.readAnimation())
	}
	if p.err != nil {
		return nil, errors.Wrap(p.err, "animations")
	}
	return &doc, nil
}

func (p *AnimationParser) readAnimation() *Animation {
	a := &Animation{}
	a.Name = p.readString()
	a.Duration = p.readFloat()
	sampleCount := p.readUint32()
	a.Samples = make([]*Sample, 0, capacity(sampleCount))
	for i := uint32(0); i < sampleCount && p.err == nil; i++ {
		keyCount := p.readUint32()
		s := &Sample{Keys: make([]Key, 0, capacity(keyCount))}
		for k := uint32(0); k < keyCount && p.err == nil; k++ {
			var key Key
			key.Joint = p.readUint32()
			key.Time = p.readFloat()
			p.read(&key.Position)
			p.read(&key.Rotation)
			p.read(&key.Scale)
			s.Keys = append(s.Keys, key)
		}
		a.Samples = append(a.Samples, s)
	}
	if p.err != nil {
		p.err = errors.Wrapf(p.err, "animation %q", a.Name)
	}
	return a
}
