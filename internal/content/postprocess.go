// Package content drafts outreach emails, either by rendering liquid
// templates or by asking a Bedrock-hosted model.
package content

import (
	"strings"

	"github.com/ignite/outreach-tracker/internal/domain"
)

var signatureIndicators = []string{
	"best regards", "sincerely", "kind regards", "warm regards", "looking forward", "thank you",
}

// Finish turns raw drafted text into a subject and body. The first line
// becomes the subject (a leading "Subject:" is dropped), markdown bold is
// stripped, sender and recipient placeholders are filled, anything from the
// first sign-off line on is replaced by a standard signature.
func Finish(raw string, req domain.DraftRequest) domain.Content {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n")
	lines := strings.Split(raw, "\n")

	subject := strings.TrimSpace(lines[0])
	if len(subject) >= 8 && strings.EqualFold(subject[:8], "subject:") {
		subject = strings.TrimSpace(subject[8:])
	} else if len(lines) == 1 {
		subject = ""
		lines = append([]string{""}, lines...)
	}
	subject = strings.ReplaceAll(subject, "**", "")
	if subject == "" && req.Previous != nil && req.Stage != domain.StageOutreach {
		subject = "Follow-up: " + req.Previous.Subject
	}

	var body []string
	for _, line := range lines[1:] {
		lower := strings.ToLower(strings.TrimSpace(line))
		if isSignOff(lower) {
			break
		}
		body = append(body, line)
	}
	text := strings.TrimSpace(strings.Join(body, "\n"))
	text = strings.ReplaceAll(text, "**", "")
	text = fillPlaceholders(text, req)

	return domain.Content{
		Subject: fillPlaceholders(subject, req),
		Body:    text + "\n\n" + signature(req.Owner),
	}
}

func isSignOff(line string) bool {
	for _, ind := range signatureIndicators {
		if strings.Contains(line, ind) {
			return true
		}
	}
	return false
}

func fillPlaceholders(s string, req domain.DraftRequest) string {
	return strings.NewReplacer(
		"[Your Name]", orPlaceholder(req.Owner.FullName, "[Your Name]"),
		"[Your Position]", orPlaceholder(req.Owner.Position, "[Your Position]"),
		"[Your Company]", orPlaceholder(req.Owner.CompanyName, "[Your Company]"),
		"[Recipient Name]", orPlaceholder(req.Recipient.Name, "[Recipient Name]"),
		"[Company Name]", orPlaceholder(req.Recipient.Company, "[Company Name]"),
	).Replace(s)
}

func signature(o domain.OwnerProfile) string {
	return "Best regards,\n" +
		orPlaceholder(o.FullName, "[Your Name]") + "\n" +
		orPlaceholder(o.Position, "[Your Position]") + "\n" +
		orPlaceholder(o.CompanyName, "[Your Company]")
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

func firstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return ""
}
