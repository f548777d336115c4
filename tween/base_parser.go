package tween

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// baseParser keeps the first read error; later reads are no-ops returning zero values.
type baseParser struct {
	r   io.Reader
	enc encoding.Encoding
	err error
}

func newBaseParser(r io.Reader, opts []Option) baseParser {
	p := baseParser{r: r}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func (p *baseParser) read(v interface{}) error {
	if p.err != nil {
		return p.err
	}
	if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		p.err = err
	}
	return p.err
}

func (p *baseParser) readUint32() uint32 {
	var v uint32
	p.read(&v)
	return v
}

func (p *baseParser) readFloat() float32 {
	var v float32
	p.read(&v)
	return v
}

func (p *baseParser) readMatrix() [16]float32 {
	var v [16]float32
	p.read(&v)
	return v
}

func (p *baseParser) readString() string {
	n := p.readUint32()
	if p.err != nil {
		return ""
	}
	if n > maxStringLen {
		p.err = errors.Wrapf(ErrInvalidFormat, "string length %d", n)
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	if p.enc != nil {
		if s, _, err := transform.Bytes(p.enc.NewDecoder(), buf); err == nil {
			return string(s)
		}
	}
	return string(buf)
}

// readHeader checks the magic and returns the flag word.
func (p *baseParser) readHeader(required uint32) uint32 {
	magic := p.readUint32()
	flags := p.readUint32()
	if p.err != nil {
		return 0
	}
	if magic != Magic {
		p.err = errors.Wrapf(ErrBadMagic, "got %#08x", magic)
		return 0
	}
	if flags&required != required {
		p.err = errors.Wrapf(ErrMissingFlag, "flags %#x, need %#x", flags, required)
		return 0
	}
	return flags
}

// capacity bounds preallocation by counts read from the file.
func capacity(n uint32) int {
	if n > 1024 {
		return 1024
	}
	return int(n)
}
