package character

import (
	"bufio"
	"log"
	"os"
	"path/filepath"

	"github.com/binzume/tweenanim/anim"
	"github.com/binzume/tweenanim/tween"
	"github.com/pkg/errors"
)

// Assets are the read-only data shared by every character built from one config.
type Assets struct {
	Model    *tween.Model
	Skeleton *anim.Skeleton
	Clips    []*anim.Clip
}

// LoadAssets reads the animation file and, when configured, the model of conf.
// Relative paths are resolved against baseDir.
func LoadAssets(conf *Config, baseDir string) (*Assets, error) {
	enc, err := tween.EncodingByName(conf.Encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %q", conf.Encoding)
	}
	var opts []tween.Option
	if enc != nil {
		opts = append(opts, tween.WithEncoding(enc))
	}

	skel, clips, err := anim.LoadFile(resolve(baseDir, conf.Animations), opts...)
	if err != nil {
		return nil, err
	}
	a := &Assets{Skeleton: skel, Clips: clips}

	if conf.Model != "" {
		path := resolve(baseDir, conf.Model)
		a.Model, err = loadModel(path, opts)
		if err != nil {
			return nil, err
		}
		if err := a.checkBinding(); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	log.Printf("[character] %s: %d joints, %d clips", skel.Name, skel.JointCount(), len(clips))
	return a, nil
}

func loadModel(path string, opts []tween.Option) (*tween.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := tween.ParseModel(bufio.NewReader(f), opts...)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

func (a *Assets) checkBinding() error {
	if !a.Model.Skinned() {
		return errors.Wrap(tween.ErrMissingFlag, "model has no skeleton binding")
	}
	if int(a.Model.JointCount) != a.Skeleton.JointCount() {
		return errors.Wrapf(anim.ErrSkeletonMismatch, "model has %d joints, skeleton %d",
			a.Model.JointCount, a.Skeleton.JointCount())
	}
	if a.Model.SkeletonName != "" && a.Skeleton.Name != "" && a.Model.SkeletonName != a.Skeleton.Name {
		return errors.Wrapf(anim.ErrSkeletonMismatch, "model skeleton %q, animations %q",
			a.Model.SkeletonName, a.Skeleton.Name)
	}
	return nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
