package recommend

import (
	"fmt"
	"strings"

	"github.com/crateguide/crateguide/pkg/models"
)

func buildCriteriaPrompt(transcript []models.Message, gaps []string) string {
	var sb strings.Builder

	sb.WriteString("You are a music curator translating a conversation with a listener into catalog search criteria.\n\n")
	sb.WriteString("Conversation:\n")
	writeTranscript(&sb, transcript)

	sb.WriteString("\nTerritories the listener has not explored yet: ")
	sb.WriteString(strings.Join(gaps, ", "))
	sb.WriteString("\n\n")

	sb.WriteString("Derive 3 to 5 search criteria that capture what the listener is reaching for.\n")
	sb.WriteString("Respond with ONLY a JSON array. Each element is an object with any of these optional string fields:\n")
	sb.WriteString("- \"genre\": a broad genre (e.g. \"Jazz\", \"Electronic\", \"Latin\")\n")
	sb.WriteString("- \"style\": a narrower style (e.g. \"Afrobeat\", \"Bossa Nova\", \"Dub\")\n")
	sb.WriteString("- \"country\": a country of origin (e.g. \"Brazil\", \"Nigeria\")\n")
	sb.WriteString("- \"yearRange\": a rough era (e.g. \"1970s\")\n\n")
	sb.WriteString("Example: [{\"genre\": \"Funk\", \"country\": \"Nigeria\"}, {\"style\": \"Bossa Nova\", \"yearRange\": \"1960s\"}]\n")
	sb.WriteString("No prose, no code fences, just the array.\n")

	return sb.String()
}

func buildCurationPrompt(transcript []models.Message, pool []models.CandidateAlbum) string {
	var sb strings.Builder

	sb.WriteString("You are a music curator choosing albums for a listener based on a conversation you had with them.\n\n")
	sb.WriteString("Conversation:\n")
	writeTranscript(&sb, transcript)

	sb.WriteString("\nAvailable albums (choose ONLY from this list, referencing each by its id):\n")
	for _, c := range pool {
		sb.WriteString(fmt.Sprintf("- id: %s | %s - %s", c.CatalogID, c.Artist, c.Title))
		if c.Year > 0 {
			sb.WriteString(fmt.Sprintf(" (%d)", c.Year))
		}
		if len(c.Genres) > 0 {
			sb.WriteString(" | " + strings.Join(c.Genres, ", "))
		}
		if c.Country != "" {
			sb.WriteString(" | " + c.Country)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nSelect exactly 5 diverse albums from the list above that best fit what the listener described.\n")
	sb.WriteString("For each, write a personalized 2-3 sentence reason tying it to what they said.\n")
	sb.WriteString("Respond with ONLY a JSON array of objects with fields \"albumId\" (the id string from the list) and \"reason\".\n")
	sb.WriteString("No prose, no code fences, just the array.\n")

	return sb.String()
}

func writeTranscript(sb *strings.Builder, transcript []models.Message) {
	for _, msg := range transcript {
		speaker := "Curator"
		if msg.Role == models.RoleUser {
			speaker = "Listener"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", speaker, msg.Content))
	}
}
