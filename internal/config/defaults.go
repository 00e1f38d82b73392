package config

const (
	defaultDataDir        = "~/.local/share/subclip"
	defaultVideoDir       = "~/.local/share/subclip/videos"
	defaultSubtitleDir    = "~/.local/share/subclip/subtitles"
	defaultLogDir         = "~/.local/share/subclip/logs"
	defaultAPIBind        = "127.0.0.1:8741"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultASRBinary      = "whisper"
	defaultASRModel       = "base"
	defaultProbeTimeout   = 30
	defaultExtractTimeout = 120
	defaultClipPadding    = 1.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			VideoDir:    defaultVideoDir,
			SubtitleDir: defaultSubtitleDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tools: Tools{
			FFmpeg:         defaultFFmpegBinary,
			FFprobe:        defaultFFprobeBinary,
			ProbeTimeout:   defaultProbeTimeout,
			ExtractTimeout: defaultExtractTimeout,
		},
		ASR: ASR{
			Binary: defaultASRBinary,
			Model:  defaultASRModel,
			// Records left processing by a crash are re-driven at the
			// next startup unless an operator opts out.
			PrepareOnStartup: true,
		},
		Clips: Clips{
			PaddingSeconds: defaultClipPadding,
		},
	}
}
