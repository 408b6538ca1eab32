package checkin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

// FallbackQuestion is asked when the model cannot produce a clarification question
const FallbackQuestion = "Can you tell me a bit more about what's happening?"

// SummaryContext is everything known about the session when the ticket summary is drafted
type SummaryContext struct {
	Device         string
	Model          string
	Student        string
	Conversation   string
	DeviceHistory  []db.Ticket
	StudentHistory []db.Ticket
	Now            time.Time
}

// Summary is the structured ticket draft returned by the model
type Summary struct {
	Summary             string   `json:"summary"`
	Details             string   `json:"details"`
	SuggestedCategory   string   `json:"suggestedCategory"`
	SuggestedUrgency    string   `json:"suggestedUrgency"`
	RelevantHistory     *string  `json:"relevantHistory"`
	TechNotes           string   `json:"techNotes"`
	TroubleshootingTips []string `json:"troubleshootingTips"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GeminiRequest wraps prompt as a single-turn generateContent request asking for JSON
func GeminiRequest(prompt string) json.RawMessage {
	body, _ := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	})
	return body
}

// SummaryPrompt builds the ticket-summary prompt
func SummaryPrompt(sc SummaryContext) string {
	deviceHistory := historyLines(sc.DeviceHistory, 3, false, sc.Now)
	if deviceHistory == "" {
		deviceHistory = "No prior issues"
	}
	studentHistory := historyLines(sc.StudentHistory, 2, true, sc.Now)
	if studentHistory == "" {
		studentHistory = "First reported issue"
	}

	var b strings.Builder
	b.WriteString("You are an expert IT support technician creating a ticket summary for the tech staff.\n\n")
	fmt.Fprintf(&b, "DEVICE: %s (%s)\n", sc.Device, sc.Model)
	fmt.Fprintf(&b, "STUDENT: %s\n", sc.Student)
	fmt.Fprintf(&b, "PROBLEM DESCRIBED: %s\n\n", sc.Conversation)
	fmt.Fprintf(&b, "DEVICE HISTORY:\n%s\n\n", deviceHistory)
	fmt.Fprintf(&b, "STUDENT'S HISTORY:\n%s\n\n", studentHistory)
	b.WriteString(`CREATE A TICKET SUMMARY with these EXACT JSON fields:

{
  "summary": "One clear sentence describing the issue",
  "details": "2-3 sentences with specific details and any relevant context",
  "suggestedCategory": "e.g., 'Hardware > Screen', 'Software > Performance', 'Connectivity > WiFi'",
  "suggestedUrgency": "High|Medium|Low",
  "relevantHistory": "Any related prior tickets or patterns (or null)",
  "techNotes": "Specific things tech should check first",
  "troubleshootingTips": ["Tip 1", "Tip 2"] (only include if applicable, otherwise empty array)
}

RESPONSE MUST BE VALID JSON ONLY.`)
	return b.String()
}

// ClarificationPrompt builds the prompt asking the model for one follow-up question
func ClarificationPrompt(sc SummaryContext) string {
	var b strings.Builder
	b.WriteString("You are an IT support technician. Ask ONE brief, smart clarification question.\n\n")
	fmt.Fprintf(&b, "STUDENT: %s\n", sc.Student)
	fmt.Fprintf(&b, "DEVICE: %s (%s)\n", sc.Device, sc.Model)
	fmt.Fprintf(&b, "PROBLEM: %q\n", sc.Conversation)
	if history := historyLines(sc.DeviceHistory, 2, false, sc.Now); history != "" {
		fmt.Fprintf(&b, "\nRELEVANT DEVICE HISTORY:\n%s\n", history)
	}
	b.WriteString(`
TASK: Ask ONE quick question to get critical missing details. Keep it to 10-15 seconds to answer.
- Be device-specific
- Do NOT ask what they already said

RESPONSE MUST BE VALID JSON:
{"status": "asking", "content": "Your ONE question here."}`)
	return b.String()
}

// ParseSummary reads the summary JSON out of a generateContent response
func ParseSummary(body json.RawMessage) (*Summary, error) {
	text, err := candidateText(body)
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	if summary.Summary == "" {
		return nil, errors.New("summary field is empty")
	}
	if summary.TroubleshootingTips == nil {
		summary.TroubleshootingTips = []string{}
	}
	return &summary, nil
}

// ParseClarification reads the question out of a generateContent response, falling back to
// FallbackQuestion when the response is unusable
func ParseClarification(body json.RawMessage) string {
	text, err := candidateText(body)
	if err != nil {
		return FallbackQuestion
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil || strings.TrimSpace(out.Content) == "" {
		return FallbackQuestion
	}
	return out.Content
}

// TicketSubject names a ticket from the selected asset and the model's issue category
func TicketSubject(assetName, issuePath, locationName string) string {
	if locationName == "" {
		locationName = "Unknown Location"
	}
	switch {
	case assetName != "" && issuePath != "":
		return assetName + " > " + issuePath
	case issuePath != "":
		return issuePath
	case assetName != "":
		return assetName + " - " + locationName
	default:
		return "Walk Up Support - " + locationName
	}
}

func candidateText(body json.RawMessage) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode generateContent response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("response has no candidate text")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func historyLines(tickets []db.Ticket, limit int, withDevice bool, now time.Time) string {
	if len(tickets) > limit {
		tickets = tickets[:limit]
	}
	lines := make([]string, 0, len(tickets))
	for _, t := range tickets {
		desc := t.ProblemDescription
		if desc == "" {
			desc = "Issue"
		}
		if withDevice {
			lines = append(lines, fmt.Sprintf("- %s on %s (%s)", desc, t.Device, RelativeAge(t.CreatedAt, now)))
		} else {
			lines = append(lines, fmt.Sprintf("- %s (%s)", desc, RelativeAge(t.CreatedAt, now)))
		}
	}
	return strings.Join(lines, "\n")
}

// RelativeAge renders how long ago t was, in whole days, weeks, months or years
func RelativeAge(t, now time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return ago(days/7, "week")
	case days < 365:
		return ago(days/30, "month")
	default:
		return ago(days/365, "year")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
