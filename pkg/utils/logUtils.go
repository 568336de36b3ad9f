package utils

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

const (
	buildInfoFilename = "build-info.yaml"
	buildInfoPrefix   = "build."
)

type LoggerConfig struct {
	LogToFile        bool   `json:"log_to_file" yaml:"log_to_file"`
	Filename         string `json:"filename" yaml:"filename"`
	MaxSize          int    `json:"max_size" yaml:"max_size"`
	MaxAge           int    `json:"max_age" yaml:"max_age"`
	MaxBackups       int    `json:"max_backups" yaml:"max_backups"`
	LogLevel         string `json:"log_level" yaml:"log_level"`
	IncludeSrc       bool   `json:"include_src" yaml:"include_src"`
	CompressOldLogs  bool   `json:"compress_old_logs" yaml:"compress_old_logs"`
	IncludeBuildInfo string `json:"include_build_info" yaml:"include_build_info"` // never, always, once
}

// InitLogger replaces the process-wide default logger with a JSON handler,
// optionally mirrored into a rotated log file.
func InitLogger(conf LoggerConfig) {
	opts := &slog.HandlerOptions{
		Level:       logLevelFromString(conf.LogLevel),
		AddSource:   conf.IncludeSrc,
		ReplaceAttr: shortenSourceAttr,
	}

	var target io.Writer = os.Stdout
	if conf.LogToFile && conf.Filename != "" {
		target = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   conf.Filename,
			MaxSize:    conf.MaxSize, // megabytes
			MaxAge:     conf.MaxAge,  // days
			MaxBackups: conf.MaxBackups,
			Compress:   conf.CompressOldLogs,
		})
	}

	logger := slog.New(slog.NewJSONHandler(target, opts))

	switch conf.IncludeBuildInfo {
	case "always":
		for _, attr := range loadBuildInfoAttrs() {
			logger = logger.With(attr)
		}
		slog.SetDefault(logger)
	case "once":
		slog.SetDefault(logger)
		if attrs := loadBuildInfoAttrs(); len(attrs) > 0 {
			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}
			slog.Info("Build info", args...)
		}
	default:
		slog.SetDefault(logger)
	}
}

// shortenSourceAttr trims source records to the base filename and strips the
// module prefix from function names.
func shortenSourceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	source, _ := a.Value.Any().(*slog.Source)
	if source != nil {
		source.File = filepath.Base(source.File)
		source.Function = strings.Replace(source.Function, "github.com/cohort-framework/cohort-backend", "", -1)
	}
	return a
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadBuildInfoAttrs reads build-info.yaml from the working directory. A
// missing or unreadable file only costs the attributes.
func loadBuildInfoAttrs() []slog.Attr {
	data, err := os.ReadFile(buildInfoFilename)
	if err != nil {
		slog.Warn("could not read build info file", slog.String("error", err.Error()))
		return nil
	}

	buildInfo := map[string]string{}
	if err := yaml.Unmarshal(data, &buildInfo); err != nil {
		slog.Warn("could not parse build info file", slog.String("error", err.Error()))
		return nil
	}

	attrs := make([]slog.Attr, 0, len(buildInfo))
	for k, v := range buildInfo {
		attrs = append(attrs, slog.String(buildInfoPrefix+k, v))
	}
	return attrs
}
