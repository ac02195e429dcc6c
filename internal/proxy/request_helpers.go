package proxy

import "regexp"

var markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)]+)\)`)

// extractUserInput scans the conversation in reverse for the latest user
// turn and pulls out its prompt text and reference image URLs. For
// single-image models only the last image of the turn is kept.
func extractUserInput(messages []Message, multiImage bool) (string, []string) {
	var prompt string
	var images []string

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		content := messages[i].Content
		if content.Text != nil {
			prompt = *content.Text
			break
		}
		for _, part := range content.Parts {
			switch part.Type {
			case "text":
				if part.Text != nil {
					prompt = *part.Text
				}
			case "image_url":
				if part.ImageURL != nil && part.ImageURL.URL != "" {
					images = append(images, part.ImageURL.URL)
				}
			}
		}
		break
	}

	if !multiImage && len(images) > 1 {
		images = images[len(images)-1:]
	}
	return prompt, images
}

// recoverHistoryImage scans assistant turns in reverse for an embedded
// markdown image link and returns the last link of the most recent turn
// that has one. Edit and video models reuse it as the reference image
// when the current user turn carries none.
func recoverHistoryImage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "assistant" || messages[i].Content.Text == nil {
			continue
		}
		matches := markdownImageRe.FindAllStringSubmatch(*messages[i].Content.Text, -1)
		if len(matches) > 0 {
			return matches[len(matches)-1][1], true
		}
	}
	return "", false
}
