// rbxanim is a CLI utility for converting skeletal animations to Roblox
// KeyframeSequence files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rbxanim/internal/config"
	"github.com/Faultbox/rbxanim/internal/logger"
	"github.com/Faultbox/rbxanim/pkg/converter"
	"github.com/Faultbox/rbxanim/pkg/formats"
	"github.com/Faultbox/rbxanim/pkg/rbxmx"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert":
		cmdConvert(args)
	case "info":
		cmdInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rbxanim - skeletal animation to Roblox KeyframeSequence converter

Usage:
  rbxanim <command> [options]

Commands:
  convert <input> [options]  Convert an animation file to a .rbxmx model
  info <input>               Show scene and animation information

Convert options:
  -o <path>       Output file (default: input name with a .rbxmx extension)
  -clip <n>       Animation clip index to convert (default 0)
  -no-filter      Keep keyframes identical to the previous one
  -epsilon <v>    Pose comparison tolerance (default 0.00001)
  -loop           Mark the sequence as looping
  -config <path>  Config file path
  -v, -verbose    Enable debug logging

Supported inputs: ` + strings.Join(formats.Extensions(), ", ") + `

Examples:
  rbxanim convert walk.bvh
  rbxanim convert model.glb -clip 1 -o wave.rbxmx
  rbxanim info dancer.gltf`)
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	output := fs.String("o", "", "Output file path")
	clip := fs.Int("clip", 0, "Animation clip index to convert")
	noFilter := fs.Bool("no-filter", false, "Keep keyframes identical to the previous one")
	epsilon := fs.Float64("epsilon", 1e-5, "Pose comparison tolerance")
	loop := fs.Bool("loop", false, "Mark the sequence as looping")
	configPath := fs.String("config", "", "Config file path")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.BoolVar(verbose, "v", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rbxanim convert <input> [options]")
		os.Exit(1)
	}
	input := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, fs, *clip, *noFilter, *epsilon, *loop)

	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutputPath(input, cfg.Output.Directory)
	}

	logger.Info("converting animation",
		zap.String("input", input),
		zap.String("output", outputPath))

	sc, err := formats.Open(input)
	if err != nil {
		logger.Error("failed to load animation", zap.Error(err))
		os.Exit(1)
	}
	logger.Debug("scene loaded",
		zap.Int("nodes", len(sc.Nodes)),
		zap.Int("clips", len(sc.Clips)))

	doc, err := converter.Convert(sc, converter.Config{
		FilterIdenticalPoses: cfg.Conversion.FilterIdenticalPoses,
		Epsilon:              cfg.Conversion.Epsilon,
		Clip:                 cfg.Conversion.Clip,
		Loop:                 cfg.Output.Loop,
	})
	if err != nil {
		logger.Error("conversion failed", zap.Error(err))
		os.Exit(1)
	}

	if err := rbxmx.WriteFile(outputPath, doc); err != nil {
		logger.Error("failed to write output", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("wrote keyframe sequence",
		zap.String("path", outputPath),
		zap.Int("bones", len(doc.Skeleton.Bones)),
		zap.Int("keyframes", len(doc.Keyframes)),
		zap.Float64("duration", doc.Duration))
}

// applyFlags overrides loaded config values with flags the user actually set.
// fs.Visit reports only set flags, so explicit zero values like -epsilon 0
// still apply while untouched flags leave the config alone.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, clip int, noFilter bool, epsilon float64, loop bool) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "clip":
			cfg.Conversion.Clip = clip
		case "no-filter":
			cfg.Conversion.FilterIdenticalPoses = !noFilter
		case "epsilon":
			cfg.Conversion.Epsilon = epsilon
		case "loop":
			cfg.Output.Loop = loop
		}
	})
}

// defaultOutputPath derives the output file from the input name: the input
// stem with a .rbxmx extension, next to the input unless an output directory
// is configured.
func defaultOutputPath(input, dir string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir != "" {
		return filepath.Join(dir, stem+".rbxmx")
	}
	return filepath.Join(filepath.Dir(input), stem+".rbxmx")
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rbxanim info <input>")
		os.Exit(1)
	}

	sc, err := formats.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:  %s\n", args[0])
	fmt.Printf("Nodes: %d\n", len(sc.Nodes))
	fmt.Printf("Clips: %d\n", len(sc.Clips))

	for i, clip := range sc.Clips {
		positions, rotations, scales := 0, 0, 0
		for _, ch := range clip.Channels {
			positions += len(ch.PositionKeys)
			rotations += len(ch.RotationKeys)
			scales += len(ch.ScaleKeys)
		}

		fmt.Println()
		fmt.Printf("Clip %d: %s\n", i, clip.Name)
		fmt.Printf("  Duration:      %.3fs\n", clip.Duration)
		fmt.Printf("  Channels:      %d\n", len(clip.Channels))
		fmt.Printf("  Position keys: %d\n", positions)
		fmt.Printf("  Rotation keys: %d\n", rotations)
		fmt.Printf("  Scale keys:    %d\n", scales)
	}
}
