package converter

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	_ "image/gif"

	"github.com/blezek/tga"
	_ "github.com/oov/psd"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// materialImages embeds each texture named by a .twm material at most once.
type materialImages struct {
	dir     string
	entries map[string]*materialImage
}

type materialImage struct {
	texture *uint32
	decoded image.Image
	err     error
}

func newMaterialImages(dir string) *materialImages {
	return &materialImages{dir: dir, entries: map[string]*materialImage{}}
}

func (m *materialImages) resolve(name string) string {
	if filepath.IsAbs(name) || m.dir == "" {
		return name
	}
	return filepath.Join(m.dir, name)
}

func (m *materialImages) entry(name string) *materialImage {
	e := m.entries[name]
	if e == nil {
		e = &materialImage{}
		m.entries[name] = e
	}
	return e
}

// decode loads the image once; failures are remembered too.
func (m *materialImages) decode(name string) (image.Image, error) {
	e := m.entry(name)
	if e.decoded == nil && e.err == nil {
		e.decoded, e.err = decodeImageFile(m.resolve(name))
	}
	return e.decoded, e.err
}

// decodeImageFile decodes any registered format. Targa has no magic number, so
// .tga files that image.Decode rejects are read again with the tga decoder.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err == nil || strings.ToLower(filepath.Ext(path)) != ".tga" {
		return img, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, path)
	}
	img, err = tga.Decode(f)
	return img, errors.Wrap(err, path)
}

// textureScale applies the resolution limit to the requested scale.
func textureScale(width int, scale float32, limit int) float32 {
	if limit > 0 {
		if w := float32(width) * scale; w > float32(limit) {
			return scale * float32(limit) / w
		}
	}
	return scale
}

func encodeTexture(img image.Image, mimeType string, scale float32) (io.Reader, error) {
	if scale != 1 {
		src := img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, int(float32(src.Dx())*scale), int(float32(src.Dy())*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
		img = dst
	}
	var buf bytes.Buffer
	var err error
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, nil)
	}
	return &buf, err
}

// textureMimeType maps a file name to the mime type stored in the glTF. Formats
// glTF cannot carry are converted to png.
func textureMimeType(name string) (mimeType string, convert bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", false
	case ".png":
		return "image/png", false
	}
	return "image/png", true
}

// addTexture returns the texture index of a material image, embedding it on first use.
func (c *tweenToGltf) addTexture(name string) (*uint32, error) {
	e := c.textures.entry(name)
	if e.texture != nil {
		return e.texture, nil
	}

	mimeType, convert := textureMimeType(name)
	var r io.Reader
	if convert || c.TextureReCompress || c.TextureScale != 1 || c.TextureResolutionLimit > 0 {
		img, err := c.textures.decode(name)
		if err != nil {
			return nil, err
		}
		scale := textureScale(img.Bounds().Dx(), c.TextureScale, c.TextureResolutionLimit)
		if r, err = encodeTexture(img, mimeType, scale); err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(c.textures.resolve(name))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	img, err := modeler.WriteImage(c.Document, filepath.Base(name), mimeType, r)
	if err != nil {
		return nil, err
	}
	// WriteImage leaves the buffer length stale.
	c.Buffers[0].ByteLength = uint32(len(c.Buffers[0].Data))
	if len(c.Samplers) == 0 {
		c.Samplers = []*gltf.Sampler{{}}
	}
	c.Textures = append(c.Textures, &gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(img)})
	e.texture = gltf.Index(uint32(len(c.Textures) - 1))
	return e.texture, nil
}
