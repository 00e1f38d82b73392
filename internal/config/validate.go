package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateClips(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.VideoDir == "" {
		return errors.New("paths.video_dir must be set")
	}
	if c.Paths.SubtitleDir == "" {
		return errors.New("paths.subtitle_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.FFmpeg == "" {
		return errors.New("tools.ffmpeg must be set")
	}
	if c.Tools.FFprobe == "" {
		return errors.New("tools.ffprobe must be set")
	}
	if c.Tools.ProbeTimeout < 0 {
		return errors.New("tools.probe_timeout must not be negative")
	}
	if c.Tools.ExtractTimeout < 0 {
		return errors.New("tools.extract_timeout must not be negative")
	}
	if c.ASR.Binary == "" {
		return errors.New("asr.binary must be set")
	}
	if c.ASR.Model == "" {
		return errors.New("asr.model must be set")
	}
	return nil
}

func (c *Config) validateClips() error {
	if c.Clips.PaddingSeconds < 0 {
		return errors.New("clips.padding_seconds must not be negative")
	}
	return nil
}
