package internal

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// YtvsConfig is the struct used to contain the various user config
// supplied by file or environment.
type YtvsConfig struct {
	Host string `yaml:"host" env:"HOST_ADDR" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"PORT" env-default:"10000"`

	// Directory the downloaded media files live in.
	MediaDirPath string `yaml:"media_dir" env:"MEDIA_DIR" env-default:"static/downloads"`

	// Path of the JSON document the record store is mirrored to.
	MetadataPath string `yaml:"metadata_file" env:"METADATA_FILE" env-default:"static/videos.json"`

	// Interval for the library's force-sync reconcile pass, which runs
	// irrespective of the directory watcher.
	ForceSyncSeconds int `yaml:"force_sync_seconds" env:"FORCE_SYNC_SECONDS" env-default:"300"`

	// Extractor tuning knobs, passed through without interpretation.
	YtDlpBinPath     string `yaml:"yt_dlp_path" env:"YTDLP_PATH" env-default:"yt-dlp"`
	FormatPreference string `yaml:"format_preference" env:"FORMAT_PREFERENCE"`
	PlayerClient     string `yaml:"player_client" env:"PLAYER_CLIENT" env-default:"android,web"`

	// Well-known locations checked for extractor credential material.
	CookieFilePaths []string `yaml:"cookie_files" env:"COOKIE_FILES" env-default:"youtube_cookies.txt,cookies.txt"`
}

// Load populates the config from the YAML file at the provided path
// (when non-empty and present) merged with environment overrides.
func (config *YtvsConfig) Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cleanenv.ReadConfig(configPath, config); err != nil {
				return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
			}

			return config.expandPaths()
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("configuration file %s could not be accessed: %w", configPath, err)
		}
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return config.expandPaths()
}

// HostAddr composes the listen address the HTTP gateway binds to.
func (config *YtvsConfig) HostAddr() string {
	return net.JoinHostPort(config.Host, config.Port)
}

func (config *YtvsConfig) expandPaths() error {
	for _, path := range []*string{&config.MediaDirPath, &config.MetadataPath} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("failed to expand path %s: %w", *path, err)
		}

		*path = expanded
	}

	return nil
}
