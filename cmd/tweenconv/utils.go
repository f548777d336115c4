package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/tweenanim/anim"
	"github.com/binzume/tweenanim/character"
	"github.com/binzume/tweenanim/converter"
	"github.com/binzume/tweenanim/tween"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

var dumper = spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true}

func parserOptions(encoding string) ([]tween.Option, error) {
	enc, err := tween.EncodingByName(encoding)
	if err != nil || enc == nil {
		return nil, err
	}
	return []tween.Option{tween.WithEncoding(enc)}, nil
}

func loadAnimation(input string, opts []tween.Option) (*tween.Document, error) {
	r, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return tween.ParseAnimation(bufio.NewReader(r), opts...)
}

func loadModel(input string, opts []tween.Option) (*tween.Model, error) {
	r, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return tween.ParseModel(bufio.NewReader(r), opts...)
}

func printModel(w io.Writer, m *tween.Model) {
	fmt.Fprintf(w, "Meshes: %d\n", len(m.Meshes))
	for i, mesh := range m.Meshes {
		fmt.Fprintf(w, "  [%d] vertices=%d indices=%d material=%q joints=%d\n",
			i, len(mesh.Vertices), len(mesh.Indices), mesh.Material, len(mesh.Joints))
	}
	if m.Skinned() {
		fmt.Fprintf(w, "Skeleton: %s (%d joints)\n", m.SkeletonName, m.JointCount)
	}
}

func printSkeleton(w io.Writer, skel *anim.Skeleton, clips []*anim.Clip) {
	fmt.Fprintf(w, "Skeleton: %s (%d joints)\n", skel.Name, skel.JointCount())
	depth := make([]int, skel.JointCount())
	for i, j := range skel.Joints {
		if j.Parent != anim.NoParent {
			depth[i] = depth[j.Parent] + 1
		}
		fmt.Fprintf(w, "  %s%s\n", strings.Repeat("  ", depth[i]), j.Name)
	}
	fmt.Fprintf(w, "Clips: %d\n", len(clips))
	for _, c := range clips {
		fmt.Fprintf(w, "  %s duration=%.3f samples=%d\n", c.Name, c.Duration, len(c.Samples))
	}
}

func printTransforms(w io.Writer, skel *anim.Skeleton, mats []mgl32.Mat4) {
	for i, m := range mats {
		fmt.Fprintf(w, "%s\n%v", skel.Joints[i].Name, m)
	}
}

func sampleClip(w io.Writer, skel *anim.Skeleton, clips []*anim.Clip, name string, t float32) error {
	for _, c := range clips {
		if c.Name != name {
			continue
		}
		pose := make([]anim.JointPose, skel.JointCount())
		c.SamplePose(t, pose)
		mats, err := anim.NewPipeline(skel).Compute(pose)
		if err != nil {
			return err
		}
		printTransforms(w, skel, mats)
		return nil
	}
	return errors.Wrapf(anim.ErrNotFound, "clip %q", name)
}

func simulate(w io.Writer, c *character.Character, frames, fps int) error {
	dt := float32(1) / float32(fps)
	var mats []mgl32.Mat4
	for i := 0; i < frames; i++ {
		var err error
		if mats, err = c.Update(dt); err != nil {
			return err
		}
	}
	for _, st := range c.Clips() {
		fmt.Fprintf(w, "%s enabled=%v time=%.3f weight=%.3f\n", st.Name, st.Enabled, st.Time, st.Weight)
	}
	printTransforms(w, c.Skeleton(), mats)
	return nil
}

func saveGLTF(skel *anim.Skeleton, clips []*anim.Clip, model *tween.Model, textureDir, output string, opt *converter.TweenToGLTFOption) error {
	doc, err := converter.NewTweenToGLTFConverter(opt).Convert(skel, clips, model, textureDir)
	if err != nil {
		return err
	}
	if strings.ToLower(filepath.Ext(output)) == ".gltf" {
		return gltf.Save(doc, output)
	}
	return gltf.SaveBinary(doc, output)
}
