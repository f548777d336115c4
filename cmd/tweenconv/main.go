package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/binzume/tweenanim/anim"
	"github.com/binzume/tweenanim/character"
	"github.com/binzume/tweenanim/converter"
	"github.com/binzume/tweenanim/server"
	"github.com/binzume/tweenanim/tween"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] input.twa|input.twm|character.yaml [output.glb]\n", os.Args[0])
		flag.PrintDefaults()
	}
	modelFile := flag.String("model", "", "model (.twm) to export with the animations")
	info := flag.Bool("info", false, "print a summary (default when no output is given)")
	dump := flag.Bool("dump", false, "dump parsed data")
	sample := flag.String("sample", "", "print skinning matrices of this clip")
	sampleTime := flag.Float64("time", 0, "sample time in seconds (-sample)")
	encoding := flag.String("encoding", "", "name encoding (e.g. shift_jis)")
	scale := flag.Float64("scale", 1, "scale for glTF export")
	compact := flag.Bool("compact", false, "omit channels that never leave the bind pose")
	texScale := flag.Float64("texscale", 1, "texture scale for glTF export")
	texLimit := flag.Int("texlimit", 0, "texture resolution limit (0: unlimited)")
	serve := flag.String("serve", "", "serve the character on this address (.yaml)")
	fps := flag.Int("fps", 60, "frames per second (.yaml)")
	frames := flag.Int("frames", 60, "frames to simulate (.yaml)")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}
	input := flag.Arg(0)
	output := flag.Arg(1)

	opts, err := parserOptions(*encoding)
	if err != nil {
		log.Fatal(err)
	}

	inputExt := strings.ToLower(filepath.Ext(input))
	if inputExt == ".yaml" || inputExt == ".yml" {
		if err := runCharacter(input, *serve, *fps, *frames); err != nil {
			log.Fatal(err)
		}
		return
	}

	if inputExt == ".twm" {
		m, err := loadModel(input, opts)
		if err != nil {
			log.Fatal(err)
		}
		if *dump {
			dumper.Dump(m)
		}
		printModel(os.Stdout, m)
		return
	}

	doc, err := loadAnimation(input, opts)
	if err != nil {
		log.Fatal(err)
	}
	if *dump {
		dumper.Dump(doc)
	}
	skel, clips, err := anim.FromDocument(doc)
	if err != nil {
		log.Fatal(err)
	}

	if *sample != "" {
		if err := sampleClip(os.Stdout, skel, clips, *sample, float32(*sampleTime)); err != nil {
			log.Fatal(err)
		}
		return
	}
	if *info || output == "" {
		printSkeleton(os.Stdout, skel, clips)
	}
	if output == "" {
		return
	}

	var model *tween.Model
	textureDir := filepath.Dir(input)
	if *modelFile != "" {
		if model, err = loadModel(*modelFile, opts); err != nil {
			log.Fatal(err)
		}
		textureDir = filepath.Dir(*modelFile)
	}
	opt := &converter.TweenToGLTFOption{
		Scale:                  float32(*scale),
		Compact:                *compact,
		TextureScale:           float32(*texScale),
		TextureResolutionLimit: *texLimit,
	}
	if err := saveGLTF(skel, clips, model, textureDir, output, opt); err != nil {
		log.Fatal(err)
	}
	log.Println("Saved:", output)
}

func runCharacter(input, addr string, fps, frames int) error {
	conf, err := character.LoadConfig(input)
	if err != nil {
		return err
	}
	assets, err := character.LoadAssets(conf, filepath.Dir(input))
	if err != nil {
		return err
	}
	c, err := character.New(conf, assets)
	if err != nil {
		return err
	}
	defer c.Release()

	if addr == "" {
		return simulate(os.Stdout, c, frames, fps)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return server.NewServer(server.NewLoop(c)).ListenAndServe(ctx, addr, fps)
}
