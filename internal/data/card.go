package data

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

// Card action identifiers carried in button values and echoed back by the
// card callback.
const (
	CardActionApprove = "approve"
	CardActionSkip    = "skip"

	// CardValueAction and CardValueReviewKey are the keys of the button
	// value payload.
	CardValueAction    = "action"
	CardValueReviewKey = "review_key"
)

// BuildReviewCard renders a review as a Feishu interactive card. The
// rendering follows the review status: a pending card carries approve/skip
// buttons and a revision hint, terminal cards only state what happened.
func BuildReviewCard(review *domain.Review, preferredLang string) string {
	elements := []map[string]interface{}{
		mdDiv(fmt.Sprintf("**App:** %s\n**By:** %s%s",
			review.AppName, review.AuthorName, territoryLine(review.Territory))),
		mdDiv(fmt.Sprintf("**Review:**\n%s", review.OriginalText)),
	}

	if review.TranslatedText != "" {
		elements = append(elements, mdDiv(fmt.Sprintf("**Translation (%s):**\n%s",
			preferredLang, review.TranslatedText)))
	}

	elements = append(elements, map[string]interface{}{"tag": "hr"})

	replyHeading := "AI Generated Reply"
	if review.Status == domain.StatusReplied {
		replyHeading = "Sent Reply"
	}
	elements = append(elements, mdDiv(fmt.Sprintf("**%s:**\n%s", replyHeading, review.GeneratedReply)))

	if review.ReplyTranslated != "" && review.ReplyTranslated != review.GeneratedReply {
		elements = append(elements, mdDiv(fmt.Sprintf("**Reply (%s):**\n%s",
			preferredLang, review.ReplyTranslated)))
	}

	switch review.Status {
	case domain.StatusPending:
		elements = append(elements,
			map[string]interface{}{
				"tag": "note",
				"elements": []map[string]interface{}{
					{"tag": "plain_text", "content": "Reply to this message with comments to adjust the reply."},
				},
			},
			map[string]interface{}{
				"tag": "action",
				"actions": []map[string]interface{}{
					cardButton("✅ Send Reply", "primary", CardActionApprove, review.Key),
					cardButton("❌ Skip", "default", CardActionSkip, review.Key),
				},
			},
		)
	case domain.StatusReplied:
		elements = append(elements, mdDiv("✅ **Reply sent successfully.**"))
	case domain.StatusSkipped:
		elements = append(elements, mdDiv("⏭ **Skipped.**"))
	}

	card := map[string]interface{}{
		"config": map[string]interface{}{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"template": headerTemplate(review),
			"title": map[string]interface{}{
				"tag": "plain_text",
				"content": fmt.Sprintf("%s | %s (%d/5)",
					review.Platform.Label(), renderStars(review.StarRating), review.StarRating),
			},
		},
		"elements": elements,
	}

	raw, _ := json.Marshal(card)
	return string(raw)
}

func headerTemplate(review *domain.Review) string {
	if review.Status == domain.StatusSkipped {
		return "grey"
	}
	switch {
	case review.StarRating >= 4:
		return "green"
	case review.StarRating == 3:
		return "orange"
	default:
		return "red"
	}
}

func renderStars(rating int) string {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("⭐", rating)
}

func territoryLine(territory string) string {
	if territory == "" {
		return ""
	}
	return "\n**Territory:** " + territory
}

func mdDiv(content string) map[string]interface{} {
	return map[string]interface{}{
		"tag":  "div",
		"text": map[string]interface{}{"tag": "lark_md", "content": content},
	}
}

func cardButton(label, style, action, reviewKey string) map[string]interface{} {
	return map[string]interface{}{
		"tag":  "button",
		"text": map[string]interface{}{"tag": "plain_text", "content": label},
		"type": style,
		"value": map[string]interface{}{
			CardValueAction:    action,
			CardValueReviewKey: reviewKey,
		},
	}
}
