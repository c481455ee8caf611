package prompts

import (
	"fmt"
	"strings"

	"github.com/timmy/creatorkit/internal/domain"
)

// ============================================================================
// Assistant Prompts
// ============================================================================

// AssistantSystemTemplate frames the chat assistant around one video.
// The metadata block is filled by BuildAssistantSystemPrompt on every request.
const AssistantSystemTemplate = `You are an AI assistant for YouTube creators. You help analyze a single video and produce content for it: summaries, hooks, descriptions, titles and thumbnail ideas.

You are working on this video:
%s

Tools:
- transcript-fetch: fetch the video transcript. Call it before answering questions about what is said in the video. If the result has "cache": true, tell the user the transcript was loaded from the database.
- image-generate: generate a thumbnail image from a detailed prompt. Describe composition, subject, colors and text overlays in the prompt.
- title-generate: generate a single title from a summary of the video and any considerations the user gave.

Rules:
- Format answers in Markdown. Use LaTeX between $ signs for any math.
- Use the transcript for content questions; do not invent quotes.
- If a tool reports that the user has reached a plan limit, tell them to upgrade via "Manage Plan" and do not retry the tool.
- If a tool fails for another reason, apologize briefly and suggest trying again later.
- Keep tool calls to what the request needs.`

// BuildAssistantSystemPrompt renders the system directive from live metadata.
func BuildAssistantSystemPrompt(meta *domain.VideoMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Video ID: %s\n", meta.VideoID)
	fmt.Fprintf(&b, "- Title: %s\n", meta.Title)
	fmt.Fprintf(&b, "- Channel: %s", meta.ChannelTitle)
	if meta.SubscriberCount > 0 {
		fmt.Fprintf(&b, " (%d subscribers)", meta.SubscriberCount)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Views: %d\n", meta.ViewCount)
	fmt.Fprintf(&b, "- Likes: %d\n", meta.LikeCount)
	fmt.Fprintf(&b, "- Comments: %d\n", meta.CommentCount)
	if !meta.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "- Published: %s\n", meta.PublishedAt.Format("2006-01-02"))
	}
	return fmt.Sprintf(AssistantSystemTemplate, strings.TrimRight(b.String(), "\n"))
}

// ============================================================================
// Title Prompts
// ============================================================================

// TitleSystemPrompt constrains title generation to one short line.
const TitleSystemPrompt = `You are a YouTube title expert. Write exactly one compelling, click-worthy but honest title for the video described by the user.

Rules:
- Output the title only, on a single line.
- No quotes, no numbering, no explanation.
- At most 100 characters.`

// BuildTitleUserPrompt combines the video summary with the user's considerations.
func BuildTitleUserPrompt(summary, considerations string) string {
	var b strings.Builder
	b.WriteString("Video summary:\n")
	b.WriteString(strings.TrimSpace(summary))
	if c := strings.TrimSpace(considerations); c != "" {
		b.WriteString("\n\nConsiderations:\n")
		b.WriteString(c)
	}
	return b.String()
}

// ============================================================================
// User-visible messages
// ============================================================================

const (
	// ImageQuotaMessage is returned when the image entitlement is exhausted.
	ImageQuotaMessage = `You have reached your image generation limit for this billing period. Upgrade your plan in "Manage Plan" to generate more images.`

	// GenericFailureMessage is shown for every non-entitlement failure.
	GenericFailureMessage = "Something went wrong, please try again later"
)
