// Package ai produces a trend analysis of the day's keyword statistics
// through the Gemini API.
package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/trendwatch/trendwatch/internal/aggregate"
)

// maxTitlesPerGroup caps how much of each group goes into the prompt.
const maxTitlesPerGroup = 10

type Analyzer struct {
	client *genai.Client
	model  string
}

// Analysis is the parsed model output.
type Analysis struct {
	Summary string // one-paragraph overview of the day's trends
	Trends  string // per-topic movement notes
	Outlook string // what to watch next
	RawText string // full model response, kept for the report appendix
}

func NewAnalyzer(ctx context.Context, apiKey, model string) (*Analyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Analyzer{client: client, model: model}, nil
}

func (a *Analyzer) Close() {
	if a.client != nil {
		a.client.Close()
	}
}

// Analyze asks the model to interpret the keyword statistics. Empty stats
// short-circuit without an API call.
func (a *Analyzer) Analyze(ctx context.Context, date string, stats []aggregate.KeywordStat) (*Analysis, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("nothing to analyze: no keyword matches")
	}

	model := a.client.GenerativeModel(a.model)
	prompt := buildPrompt(date, stats)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	response := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return parseAnalysis(response), nil
}

func buildPrompt(date string, stats []aggregate.KeywordStat) string {
	var b strings.Builder
	b.WriteString("You are a news trend analyst. Below are today's keyword match statistics\n")
	b.WriteString("from monitored hot lists and feeds, busiest topic first.\n\n")
	fmt.Fprintf(&b, "DATE: %s\n\n", date)

	for _, stat := range stats {
		fmt.Fprintf(&b, "TOPIC %q (%d matches):\n", stat.Group, stat.Count)
		for i, t := range stat.Titles {
			if i >= maxTitlesPerGroup {
				fmt.Fprintf(&b, "  ... and %d more\n", stat.Count-maxTitlesPerGroup)
				break
			}
			marker := ""
			if t.IsNew {
				marker = " [new]"
			}
			fmt.Fprintf(&b, "  - [%s] %s%s\n", t.SourceName, t.Title, marker)
		}
		b.WriteString("\n")
	}

	b.WriteString(`TASKS:

Write a short overview of what dominates today's news.

Describe the movement per topic: what is rising, what is fading.

Name one or two things worth watching tomorrow.

Answer strictly in this template:

SUMMARY: <overview paragraph>

TRENDS: <per-topic notes>

OUTLOOK: <what to watch>
`)
	return b.String()
}

var sectionPatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"summary", regexp.MustCompile(`(?i)^SUMMARY\s*: ?`)},
	{"trends", regexp.MustCompile(`(?i)^TRENDS\s*: ?`)},
	{"outlook", regexp.MustCompile(`(?i)^OUTLOOK\s*: ?`)},
}

// parseAnalysis splits the labeled response into sections. Unlabeled text
// before the first label is folded into the summary so a slightly off-format
// response still yields something usable.
func parseAnalysis(response string) *Analysis {
	out := &Analysis{RawText: strings.TrimSpace(response)}
	builders := map[string]*strings.Builder{
		"summary": {},
		"trends":  {},
		"outlook": {},
	}

	current := "summary"
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)

		for _, p := range sectionPatterns {
			if p.regex.MatchString(line) {
				current = p.name
				line = p.regex.ReplaceAllString(line, "")
				break
			}
		}

		if line == "" {
			continue
		}
		b := builders[current]
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}

	out.Summary = builders["summary"].String()
	out.Trends = builders["trends"].String()
	out.Outlook = builders["outlook"].String()
	return out
}
