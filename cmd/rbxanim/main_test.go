package main

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/Faultbox/rbxanim/internal/config"
)

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no flags keeps config values",
			args: []string{},
			verify: func(t *testing.T, cfg *config.Config) {
				if cfg.Conversion.Clip != 3 {
					t.Errorf("expected clip 3 from config, got %d", cfg.Conversion.Clip)
				}
				if !cfg.Conversion.FilterIdenticalPoses {
					t.Error("expected filtering to stay enabled")
				}
			},
		},
		{
			name: "no-filter flag disables filtering",
			args: []string{"-no-filter"},
			verify: func(t *testing.T, cfg *config.Config) {
				if cfg.Conversion.FilterIdenticalPoses {
					t.Error("expected filtering to be disabled")
				}
			},
		},
		{
			name: "explicit zero epsilon applies",
			args: []string{"-epsilon", "0"},
			verify: func(t *testing.T, cfg *config.Config) {
				if cfg.Conversion.Epsilon != 0 {
					t.Errorf("expected epsilon 0, got %g", cfg.Conversion.Epsilon)
				}
			},
		},
		{
			name: "clip and loop flags",
			args: []string{"-clip", "1", "-loop"},
			verify: func(t *testing.T, cfg *config.Config) {
				if cfg.Conversion.Clip != 1 {
					t.Errorf("expected clip 1, got %d", cfg.Conversion.Clip)
				}
				if !cfg.Output.Loop {
					t.Error("expected loop to be enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("convert", flag.ContinueOnError)
			clip := fs.Int("clip", 0, "")
			noFilter := fs.Bool("no-filter", false, "")
			epsilon := fs.Float64("epsilon", 1e-5, "")
			loop := fs.Bool("loop", false, "")
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			cfg := config.Default()
			cfg.Conversion.Clip = 3 // distinguishable from the flag default

			applyFlags(cfg, fs, *clip, *noFilter, *epsilon, *loop)
			tt.verify(t, cfg)
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input string
		dir   string
		want  string
	}{
		{"walk.bvh", "", "walk.rbxmx"},
		{"anim/walk.bvh", "", "anim/walk.rbxmx"},
		{"anim/walk.bvh", "out", "out/walk.rbxmx"},
		{"model.tar.gz", "", "model.tar.rbxmx"},
		{"noext", "", "noext.rbxmx"},
	}

	for _, tt := range tests {
		got := defaultOutputPath(tt.input, tt.dir)
		want := filepath.FromSlash(tt.want)
		if got != want {
			t.Errorf("defaultOutputPath(%q, %q) = %q, want %q", tt.input, tt.dir, got, want)
		}
	}
}
