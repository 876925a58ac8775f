// Package config handles converter configuration loading and management.
package config

// Config holds all converter settings.
type Config struct {
	Conversion ConversionConfig `yaml:"conversion"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConversionConfig holds keyframe sampling and filtering settings.
type ConversionConfig struct {
	FilterIdenticalPoses bool    `yaml:"filter_identical_poses"`
	Epsilon              float64 `yaml:"epsilon"`
	Clip                 int     `yaml:"clip"`
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Directory string `yaml:"directory"` // Empty means next to the input file
	Loop      bool   `yaml:"loop"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Conversion: ConversionConfig{
			FilterIdenticalPoses: true,
			Epsilon:              1e-5,
			Clip:                 0,
		},
		Output: OutputConfig{
			Directory: "",
			Loop:      false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
