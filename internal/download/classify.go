package download

import "strings"

// FailureKind distinguishes the user-facing categories a failed
// extraction can land in.
type FailureKind int

const (
	ToolMissing FailureKind = iota
	FormatUnavailable
	AuthRequired
	PremiumRequired
	PrivateContent
	ContentUnavailable
	ExtractionFailed
	Unclassified
)

func (kind FailureKind) String() string {
	return []string{
		"TOOL_MISSING",
		"FORMAT_UNAVAILABLE",
		"AUTH_REQUIRED",
		"PREMIUM_REQUIRED",
		"PRIVATE_CONTENT",
		"CONTENT_UNAVAILABLE",
		"EXTRACTION_FAILED",
		"UNCLASSIFIED",
	}[kind]
}

// Failure is the structured, non-throwing outcome of a failed
// extraction: a kind for programmatic use and a human-readable message
// for the caller. Raw extractor output never reaches the user except
// for unclassified failures, which surface the underlying message.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (failure Failure) Error() string {
	return failure.Message
}

type classifier struct {
	kind    FailureKind
	needles []string
	message string
}

// classifierChain is the ordered list of substring classifiers applied
// to the extractor's failure output; the first match wins. The
// extractor reports failures as free text, so substring matching
// against known phrasings is the only classification signal available.
var classifierChain = []classifier{
	{
		kind:    ToolMissing,
		needles: []string{"ffmpeg is not installed", "ffprobe and ffmpeg not found", "executable file not found"},
		message: "Download failed: FFmpeg is not installed. Please install FFmpeg or use a different format.",
	},
	{
		kind:    FormatUnavailable,
		needles: []string{"Requested format is not available"},
		message: "Could not find the requested video format. The video might be restricted or unavailable.",
	},
	{
		kind:    AuthRequired,
		needles: []string{"Sign in to confirm you're not a bot"},
		message: "YouTube requires authentication. Your cookies may be invalid or expired. Please update your cookies file.",
	},
	{
		kind:    PremiumRequired,
		needles: []string{"This video is available for Premium users only", "This video is only available for Premium users"},
		message: "This video requires a YouTube Premium subscription.",
	},
	{
		kind:    PrivateContent,
		needles: []string{"Private video"},
		message: "This video is private and cannot be accessed.",
	},
	{
		kind:    ContentUnavailable,
		needles: []string{"Video unavailable"},
		message: "This video is unavailable. It may have been removed or set to private.",
	},
	{
		kind:    ExtractionFailed,
		needles: []string{"Failed to extract video information", "Unable to extract"},
		message: "Failed to extract video information. This video may have special restrictions or the URL format might be incorrect.",
	},
}

// Classify turns an extraction error into a Failure by walking the
// classifier chain; anything unmatched is surfaced with the raw
// underlying message.
func Classify(err error) Failure {
	errorMessage := err.Error()
	for _, classifier := range classifierChain {
		for _, needle := range classifier.needles {
			if strings.Contains(errorMessage, needle) {
				return Failure{Kind: classifier.kind, Message: classifier.message}
			}
		}
	}

	return Failure{Kind: Unclassified, Message: "Download failed: " + errorMessage}
}
