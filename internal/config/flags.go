package config

import "github.com/spf13/pflag"

// Flags are the command-line overrides shared by every command.
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	ExportDir  string
	Color      string
	KeepFiles  bool
}

// Register adds the flags to fs, usually a cobra command's persistent set.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.StringVar(&f.ExportDir, "export-dir", "", "Directory for interchange files")
	fs.StringVar(&f.Color, "color", "", "Default mesh color as #rrggbb")
	fs.BoolVar(&f.KeepFiles, "keep-files", false, "Keep interchange files after external tools run")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.ExportDir != "" {
		cfg.Export.Dir = f.ExportDir
	}
	if f.Color != "" {
		cfg.Scene.Color = f.Color
	}
	if f.KeepFiles {
		cfg.Export.KeepFiles = true
	}
}
