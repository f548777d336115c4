package tween

import (
	"encoding/binary"
	"io"
)

type baseWriter struct {
	w   io.Writer
	err error
}

func (p *baseWriter) write(v interface{}) {
	if p.err != nil {
		return
	}
	p.err = binary.Write(p.w, binary.LittleEndian, v)
}

func (p *baseWriter) writeUint32(v uint32) {
	p.write(&v)
}

func (p *baseWriter) writeFloat(v float32) {
	p.write(&v)
}

func (p *baseWriter) writeString(s string) {
	p.writeUint32(uint32(len(s)))
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}
