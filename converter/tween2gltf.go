package converter

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/binzume/tweenanim/anim"
	"github.com/binzume/tweenanim/gltfutil"
	"github.com/binzume/tweenanim/tween"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

type TweenToGLTFOption struct {
	Scale float32 // Default: 1
	// Compact drops channels that stay at the joint's bind pose for the whole clip.
	Compact bool

	TextureReCompress      bool
	TextureResolutionLimit int // 0: unlimited
	TextureScale           float32
}

type tweenToGltf struct {
	*TweenToGLTFOption
	*gltf.Document
	textures  *materialImages
	materials map[string]uint32
}

func NewTweenToGLTFConverter(options *TweenToGLTFOption) *tweenToGltf {
	if options == nil {
		options = &TweenToGLTFOption{}
	}
	if options.Scale == 0 {
		options.Scale = 1
	}
	if options.TextureScale == 0 {
		options.TextureScale = 1.0
	}
	return &tweenToGltf{
		TweenToGLTFOption: options,
		Document:          gltf.NewDocument(),
		materials:         map[string]uint32{},
	}
}

func nodeRotation(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// addJointNodes creates one node per joint; node index equals joint index.
func (c *tweenToGltf) addJointNodes(skel *anim.Skeleton) []uint32 {
	base := uint32(len(c.Nodes))
	joints := make([]uint32, skel.JointCount())
	for i, j := range skel.Joints {
		p := skel.BindPose()[i]
		c.Nodes = append(c.Nodes, &gltf.Node{
			Name:        j.Name,
			Translation: p.Position,
			Rotation:    nodeRotation(p.Rotation),
			Scale:       p.Scale,
		})
		joints[i] = base + uint32(i)
		if j.Parent == anim.NoParent {
			c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, joints[i])
		} else {
			parent := c.Nodes[base+j.Parent]
			parent.Children = append(parent.Children, joints[i])
		}
	}
	return joints
}

func (c *tweenToGltf) addSkin(skel *anim.Skeleton, joints []uint32) uint32 {
	invmats := make([]mgl32.Mat4, len(skel.Joints))
	for i, j := range skel.Joints {
		invmats[i] = j.InverseBind
	}
	c.Skins = append(c.Skins, &gltf.Skin{
		Name:                skel.Name,
		Joints:              joints,
		Skeleton:            gltf.Index(joints[0]),
		InverseBindMatrices: gltf.Index(gltfutil.WriteMatrices(c.Document, invmats)),
	})
	return uint32(len(c.Skins) - 1)
}

func (c *tweenToGltf) convertMaterial(path string) uint32 {
	if idx, ok := c.materials[path]; ok {
		return idx
	}
	mm := &gltf.Material{
		Name: filepath.Base(path),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
		},
	}
	if path != "" {
		if tex, err := c.addTexture(path); err == nil {
			mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: *tex}
		} else {
			log.Print("Texture read error:", err)
		}
	}
	c.Materials = append(c.Materials, mm)
	idx := uint32(len(c.Materials) - 1)
	c.materials[path] = idx
	return idx
}

func (c *tweenToGltf) convertMesh(name string, mesh *tween.Mesh, joints []uint32) *gltf.Mesh {
	n := len(mesh.Vertices)
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	texcoords := make([][2]float32, n)
	hasNormals := true
	for i, v := range mesh.Vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
		texcoords[i] = v.UV
		if l := mgl32.Vec3(v.Normal).Len(); l < 0.5 {
			hasNormals = false
		}
	}

	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(c.Document, positions),
		"TEXCOORD_0": modeler.WriteTextureCoord(c.Document, texcoords),
	}
	if hasNormals && n > 0 {
		attributes["NORMAL"] = modeler.WriteNormal(c.Document, normals)
	}

	if joints != nil {
		joints0 := make([][4]uint16, n)
		weights0 := make([][4]float32, n)
		for i, v := range mesh.Vertices {
			var total float32
			for k := 0; k < tween.MaxInfluences; k++ {
				if v.Joints[k] >= 0 && int(v.Joints[k]) < len(joints) {
					joints0[i][k] = uint16(v.Joints[k])
					weights0[i][k] = v.Weights[k]
					total += v.Weights[k]
				}
			}
			if total <= 0 {
				joints0[i] = [4]uint16{}
				weights0[i] = [4]float32{1, 0, 0, 0}
				continue
			}
			for k := range weights0[i] {
				weights0[i][k] /= total
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(c.Document, joints0)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(c.Document, weights0)
	}

	return &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(c.Document, mesh.Indices)),
			Attributes: attributes,
			Material:   gltf.Index(c.convertMaterial(mesh.Material)),
		}},
	}
}

func (c *tweenToGltf) addMeshes(model *tween.Model, skin *uint32, joints []uint32) {
	for i, mesh := range model.Meshes {
		if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
			continue
		}
		name := fmt.Sprintf("mesh%d", i)
		c.Meshes = append(c.Meshes, c.convertMesh(name, mesh, joints))
		c.Nodes = append(c.Nodes, &gltf.Node{
			Name: name,
			Mesh: gltf.Index(uint32(len(c.Meshes) - 1)),
			Skin: skin,
		})
		c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, uint32(len(c.Nodes)-1))
	}
}

func (c *tweenToGltf) addChannel(a *gltf.Animation, keys, output, node uint32, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(keys),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

// writeTranslations stores a channel output with its bounds. Sampler data has no
// buffer view target.
func (c *tweenToGltf) writeTranslations(data [][3]float32) uint32 {
	acc := modeler.WriteAccessor(c.Document, gltf.TargetNone, data)
	min, max := data[0], data[0]
	for _, v := range data[1:] {
		for i := range v {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	c.Accessors[acc].Min = min[:]
	c.Accessors[acc].Max = max[:]
	return acc
}

func (c *tweenToGltf) addAnimation(clip *anim.Clip, joints []uint32) {
	keys := make([]float32, len(clip.Samples))
	for i, s := range clip.Samples {
		keys[i] = s.Time
	}
	keysAcc := modeler.WriteAccessor(c.Document, gltf.TargetNone, keys)
	c.Accessors[keysAcc].Min = []float32{keys[0]}
	c.Accessors[keysAcc].Max = []float32{keys[len(keys)-1]}

	a := &gltf.Animation{Name: clip.Name}
	bind := clip.Skeleton.BindPose()
	for j := range clip.Skeleton.Joints {
		translations := make([][3]float32, len(keys))
		rotations := make([][4]float32, len(keys))
		scales := make([][3]float32, len(keys))
		translate, rotate, scale := !c.Compact, !c.Compact, !c.Compact
		for i, s := range clip.Samples {
			p := s.Poses[j]
			translations[i] = p.Position
			rotations[i] = nodeRotation(p.Rotation)
			scales[i] = p.Scale
			if !p.Position.ApproxEqual(bind[j].Position) {
				translate = true
			}
			if !p.Rotation.ApproxEqual(bind[j].Rotation) {
				rotate = true
			}
			if !p.Scale.ApproxEqual(bind[j].Scale) {
				scale = true
			}
		}
		if translate {
			c.addChannel(a, keysAcc, c.writeTranslations(translations), joints[j], gltf.TRSTranslation)
		}
		if rotate {
			c.addChannel(a, keysAcc, modeler.WriteAccessor(c.Document, gltf.TargetNone, rotations), joints[j], gltf.TRSRotation)
		}
		if scale {
			c.addChannel(a, keysAcc, modeler.WriteAccessor(c.Document, gltf.TargetNone, scales), joints[j], gltf.TRSScale)
		}
	}
	if len(a.Channels) == 0 {
		log.Printf("[gltf] clip %q has no animated joints", clip.Name)
		return
	}
	c.Animations = append(c.Animations, a)
}

// Convert builds a glTF document with the skeleton as a node hierarchy, every clip
// as an animation and, when model is not nil, its meshes skinned to the skeleton.
func (c *tweenToGltf) Convert(skel *anim.Skeleton, clips []*anim.Clip, model *tween.Model, textureDir string) (*gltf.Document, error) {
	if model != nil && model.Skinned() && int(model.JointCount) != skel.JointCount() {
		return nil, errors.Wrapf(anim.ErrSkeletonMismatch, "model has %d joints, skeleton %d", model.JointCount, skel.JointCount())
	}
	c.textures = newMaterialImages(textureDir)

	joints := c.addJointNodes(skel)
	if model != nil {
		if model.Skinned() {
			c.addMeshes(model, gltf.Index(c.addSkin(skel, joints)), joints)
		} else {
			c.addMeshes(model, nil, nil)
		}
	}
	for _, clip := range clips {
		if clip.Skeleton != skel {
			return nil, errors.Wrapf(anim.ErrSkeletonMismatch, "clip %q", clip.Name)
		}
		c.addAnimation(clip, joints)
	}

	gltfutil.Transform(c.Document, c.Scale)
	return c.Document, nil
}
