package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var clientLogger = logger.Get("YtDlp")

// DefaultFormatPreference tries progressively broader format selectors
// so the extractor can fall back when the preferred mp4 streams are
// not offered for a source.
const DefaultFormatPreference = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/bestvideo+bestaudio/best"

type (
	// ClientConfig carries the tuning knobs passed through to yt-dlp.
	// Format preference and player client are extractor hints only; the
	// adapter attaches no semantics to them.
	ClientConfig struct {
		// Path to the yt-dlp binary. Resolved via $PATH when bare.
		BinaryPath string

		// yt-dlp format selector expression.
		FormatPreference string

		// Platform-specific client spoof, e.g. "android,web". Empty
		// leaves yt-dlp's own default in place.
		PlayerClient string

		// Well-known locations checked, in order, for a cookies file to
		// pass through to the extractor. Absence is not an error.
		CookieFilePaths []string
	}

	// ExtractedInfo is the descriptive metadata reported by yt-dlp for
	// a completed download.
	ExtractedInfo struct {
		Title      string  `json:"title"`
		Duration   float64 `json:"duration"`
		Thumbnail  string  `json:"thumbnail"`
		WebpageURL string  `json:"webpage_url"`
	}

	// Client shells out to the external yt-dlp binary. Format
	// negotiation, authentication and stream merging are entirely the
	// extractor's concern; the client only assembles arguments and
	// parses the info JSON printed on completion.
	Client struct {
		config ClientConfig
	}
)

func NewClient(config ClientConfig) *Client {
	if config.BinaryPath == "" {
		config.BinaryPath = "yt-dlp"
	}
	if config.FormatPreference == "" {
		config.FormatPreference = DefaultFormatPreference
	}

	return &Client{config: config}
}

// CookieFile returns the first configured cookie file location that
// exists on disk. The boolean reports whether one was found; a missing
// cookie file only reduces the success rate for access-restricted
// sources.
func (client *Client) CookieFile() (string, bool) {
	for _, path := range client.config.CookieFilePaths {
		expanded, err := homedir.Expand(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(expanded); err == nil {
			return expanded, true
		}
	}

	return "", false
}

// Extract invokes yt-dlp against the provided URL, instructing it to
// write its output using the provided template. The extension is left
// to the extractor's own format negotiation. The command runs with no
// deadline; it completes or fails on the extractor's own terms.
func (client *Client) Extract(ctx context.Context, url string, outputTemplate string) (*ExtractedInfo, error) {
	args := []string{
		"-o", outputTemplate,
		"--no-playlist",
		"--format", client.config.FormatPreference,
		"--merge-output-format", "mp4",
		"--geo-bypass",
		"--no-colors",
		"--newline",
		"--print-json",
	}

	if client.config.PlayerClient != "" {
		args = append(args, "--extractor-args", fmt.Sprintf("youtube:player_client=%s", client.config.PlayerClient))
	}

	if cookieFile, ok := client.CookieFile(); ok {
		clientLogger.Infof("Using cookie file: %s\n", cookieFile)
		args = append(args, "--cookies", cookieFile)
	} else {
		clientLogger.Warnf("No cookie file found. This may cause authentication issues.\n")
	}

	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, client.config.BinaryPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	clientLogger.Infof("Starting download for %s\n", url)
	if err := cmd.Run(); err != nil {
		return nil, parseExtractorError(err, &stderr)
	}

	info, err := parseInfoJSON(&stdout)
	if err != nil {
		return nil, err
	}

	clientLogger.Emit(logger.SUCCESS, "Download completed for '%s'\n", info.Title)
	return info, nil
}

// parseInfoJSON finds the info JSON yt-dlp prints to stdout once the
// download completes. Progress lines share the stream, so each line is
// tried until one decodes.
func parseInfoJSON(stdout *bytes.Buffer) (*ExtractedInfo, error) {
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var info ExtractedInfo
		if err := json.Unmarshal([]byte(line), &info); err == nil {
			return &info, nil
		}
	}

	return nil, fmt.Errorf("Failed to extract video information")
}

// parseExtractorError prefers the ERROR lines from yt-dlp's stderr over
// the exec-level failure, as they carry the phrasing the classifier
// chain matches against.
func parseExtractorError(execErr error, stderr *bytes.Buffer) error {
	var errorLines []string
	for _, line := range strings.Split(stderr.String(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR") {
			errorLines = append(errorLines, line)
		}
	}

	if len(errorLines) == 0 {
		if stderrText := strings.TrimSpace(stderr.String()); stderrText != "" {
			return fmt.Errorf("%s: %w", stderrText, execErr)
		}

		return execErr
	}

	return fmt.Errorf("%s", strings.Join(errorLines, "; "))
}
