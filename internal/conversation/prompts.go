package conversation

import (
	"fmt"
	"strings"

	"github.com/crateguide/crateguide/pkg/models"
)

func buildOpeningPrompt(p *models.Portrait) string {
	var sb strings.Builder

	sb.WriteString("You are a friendly record-shop guide helping a listener discover music outside their usual habits.\n\n")
	sb.WriteString("What you know about the listener:\n")
	if len(p.PrimaryGenres) > 0 {
		sb.WriteString(fmt.Sprintf("- They mostly listen to: %s\n", strings.Join(p.PrimaryGenres, ", ")))
	}
	if len(p.GeographicCenters) > 0 {
		sb.WriteString(fmt.Sprintf("- Their collection centers on: %s\n", strings.Join(p.GeographicCenters, ", ")))
	}
	if len(p.KeyEras) > 0 {
		sb.WriteString(fmt.Sprintf("- Key eras: %s\n", strings.Join(p.KeyEras, ", ")))
	}
	if len(p.NoteworthyGaps) > 0 {
		sb.WriteString(fmt.Sprintf("- A territory they have not explored yet: %s\n", p.NoteworthyGaps[0]))
	}
	if p.Summary != "" {
		sb.WriteString(fmt.Sprintf("- In short: %s\n", p.Summary))
	}

	sb.WriteString("\nOpen a short guided conversation (3-5 questions total) that will lead to album recommendations.\n")
	sb.WriteString("Ask exactly ONE opening question. It should invite the listener toward the unexplored territory above without assuming they will like it.\n")
	sb.WriteString("Keep it warm and conversational, two sentences at most. Respond with the question only, no preamble.\n")

	return sb.String()
}

func buildFollowUpPrompt(transcript []models.Message, nextQuestion int) string {
	var sb strings.Builder

	sb.WriteString("You are a friendly record-shop guide in the middle of a short guided conversation (3-5 questions total) that will lead to album recommendations.\n\n")
	sb.WriteString("Conversation so far:\n")
	writeTranscript(&sb, transcript)

	sb.WriteString(fmt.Sprintf("\nAsk question %d. Build directly on the listener's last answer and narrow in on something concrete: a mood, an era, a place, or a sound.\n", nextQuestion))
	sb.WriteString("Ask exactly ONE question, two sentences at most. Respond with the question only, no preamble.\n")

	return sb.String()
}

func buildClosingPrompt(transcript []models.Message) string {
	var sb strings.Builder

	sb.WriteString("You are a friendly record-shop guide wrapping up a short guided conversation about what album to recommend.\n\n")
	sb.WriteString("Conversation so far:\n")
	writeTranscript(&sb, transcript)

	sb.WriteString("\nWrite a brief, warm closing message telling the listener you have what you need and you are off to dig through the crates for them.\n")
	sb.WriteString("Do NOT ask another question. Two sentences at most. Respond with the message only.\n")

	return sb.String()
}

func writeTranscript(sb *strings.Builder, transcript []models.Message) {
	for _, msg := range transcript {
		speaker := "Guide"
		if msg.Role == models.RoleUser {
			speaker = "Listener"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", speaker, msg.Content))
	}
}
