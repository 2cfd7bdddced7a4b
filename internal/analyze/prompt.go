package analyze

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/hrintel/internal/detect"
	"github.com/ppiankov/hrintel/internal/model"
)

const truncationMarker = "...(gekürzt)"

const responseInstructions = "Antworte ausschließlich mit einem JSON-Objekt in genau dieser Struktur:\n" +
	"```json\n" +
	`{
  "involvedParties": ["Beteiligte Personen, Organisationen, Behörden"],
  "legalBases": [{"reference": "Norm, z.B. Art. 5 EMRK", "description": "Bezug zum Dokument"}],
  "keyFacts": ["Zentrale Tatsachen"],
  "humanRightsImplications": ["Berührte Menschenrechte"],
  "connections": ["Verbindungen zu anderen Fällen, Orten oder Akteuren"],
  "timeline": ["Datum: Ereignis"],
  "keywords": ["Schlagwort"],
  "sentiment": "positive | negative | neutral",
  "suggestedActions": ["Empfohlene nächste Schritte"],
  "contradictions": [{"statement1": "Aussage", "statement2": "Gegenaussage", "explanation": "Worin der Widerspruch besteht"}]
}` + "\n```\n" +
	"Leere Listen sind erlaubt. Erfinde keine Tatsachen, die nicht im Dokument stehen."

// truncateRunes cuts s to at most limit runes and reports whether it did.
// A limit <= 0 disables truncation.
func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// formatPrompt renders the prompt for a document with a known HURIDOCS format
func formatPrompt(doc *model.DetectedDocument, maxRunes int) string {
	content, _ := truncateRunes(doc.RawContent, maxRunes)

	var b strings.Builder
	fmt.Fprintf(&b, "Du analysierst einen Datensatz im %s (%s).\n\n", detect.FormatTitle(doc.Format), doc.Format)
	b.WriteString("Dokumentinhalt:\n")
	b.WriteString(content)
	b.WriteString("\n\nExtrahierte HURIDOCS-Felder:\n")

	for _, number := range detect.SortedNumbers(doc.Fields) {
		value := doc.Fields[number]
		if value == "" {
			value = "(nicht angegeben)"
		}
		if label := detect.FieldLabel(number); label != "" {
			fmt.Fprintf(&b, "%s (%s): %s\n", number, label, value)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", number, value)
		}
	}

	b.WriteString("\nBerücksichtige die Feldstruktur des Formats bei der Analyse.\n\n")
	b.WriteString(responseInstructions)
	return b.String()
}

// genericPrompt renders the prompt for a document without a detected format
func genericPrompt(doc model.Document, maxRunes int) string {
	content, truncated := truncateRunes(doc.Content, maxRunes)
	if truncated {
		content += truncationMarker
	}

	title := doc.Title
	if title == "" {
		title = "Unbenannt"
	}
	docType := doc.Type
	if docType == "" {
		docType = "unbekannt"
	}

	var b strings.Builder
	b.WriteString("Analysiere das folgende Dokument aus menschenrechtlicher Sicht.\n\n")
	fmt.Fprintf(&b, "Titel: %s\nTyp: %s\n\n", title, docType)
	b.WriteString("Inhalt:\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString(responseInstructions)
	return b.String()
}
