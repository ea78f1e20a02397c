package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

// TextGenerator produces a completion for a prompt. Satisfied by the
// Gemini client wrapper.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Assisted tries an AI-assisted structured extraction first and falls back
// to the wrapped extractor on any failure: timeout, malformed response,
// quota. The output shape is identical either way.
type Assisted struct {
	client   TextGenerator
	fallback Extractor
	log      *zap.Logger
}

// NewAssisted wraps fallback with an AI-assisted extraction attempt
func NewAssisted(client TextGenerator, fallback Extractor, log *zap.Logger) *Assisted {
	return &Assisted{client: client, fallback: fallback, log: log}
}

// aiAttributes is the structured response requested from the model
type aiAttributes struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Skills     []string `json:"skills"`
	Experience float64  `json:"experience"`
}

// Extract attempts the AI path, degrading to the rule-based extractor
func (a *Assisted) Extract(ctx context.Context, text string, requestedSkills []string) (models.CandidateAttributes, error) {
	attrs, err := a.extractWithModel(ctx, text, requestedSkills)
	if err != nil {
		a.log.Warn("AI extraction failed, using rule-based fallback", zap.Error(err))
		return a.fallback.Extract(ctx, text, requestedSkills)
	}
	return attrs, nil
}

func (a *Assisted) extractWithModel(ctx context.Context, text string, requestedSkills []string) (models.CandidateAttributes, error) {
	prompt := buildExtractionPrompt(text, requestedSkills)

	response, err := a.client.GenerateContent(ctx, prompt)
	if err != nil {
		return models.CandidateAttributes{}, fmt.Errorf("model call failed: %w", err)
	}

	parsed, err := parseAttributes(response)
	if err != nil {
		return models.CandidateAttributes{}, err
	}

	name := strings.TrimSpace(parsed.Name)
	if name == "" {
		name = ExtractName(text)
	}
	experience := parsed.Experience
	if experience < 0 {
		experience = 0
	}

	return models.CandidateAttributes{
		Name:            name,
		Email:           strings.TrimSpace(parsed.Email),
		Phone:           strings.TrimSpace(parsed.Phone),
		Skills:          filterToRequested(parsed.Skills, requestedSkills),
		ExperienceYears: experience,
		Education:       ExtractEducation(text),
	}, nil
}

// buildExtractionPrompt asks for a strict JSON object so the response can
// be parsed without free text
func buildExtractionPrompt(text string, requestedSkills []string) string {
	var sb strings.Builder
	sb.WriteString("Extract the following fields from the resume below as a single JSON object:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "name": "Full Name",` + "\n")
	sb.WriteString(`  "email": "email@example.com",` + "\n")
	sb.WriteString(`  "phone": "+1234567890",` + "\n")
	sb.WriteString(`  "skills": ["only", "requested", "skills"],` + "\n")
	sb.WriteString(`  "experience": <years as a number>` + "\n")
	sb.WriteString("}\n\n")
	if len(requestedSkills) > 0 {
		sb.WriteString("Skills to match: " + strings.Join(requestedSkills, ", ") + "\n\n")
	}
	sb.WriteString("Return ONLY the JSON object, no additional text.\n\n")
	sb.WriteString("RESUME:\n")
	sb.WriteString(text)
	return sb.String()
}

// parseAttributes extracts the JSON object from the model response, which
// may be wrapped in extra text
func parseAttributes(response string) (aiAttributes, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return aiAttributes{}, fmt.Errorf("no JSON object found in response")
	}

	var parsed aiAttributes
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return aiAttributes{}, fmt.Errorf("malformed JSON in response: %w", err)
	}
	return parsed, nil
}

// filterToRequested keeps only skills present in the requested list,
// preserving the requested casing. The model is not trusted to respect the
// allow-list on its own.
func filterToRequested(skills, requestedSkills []string) []string {
	if len(requestedSkills) == 0 {
		return dedupe(skills)
	}

	byLower := make(map[string]string, len(requestedSkills))
	for _, skill := range requestedSkills {
		byLower[strings.ToLower(skill)] = skill
	}

	var filtered []string
	seen := make(map[string]bool)
	for _, skill := range skills {
		lower := strings.ToLower(strings.TrimSpace(skill))
		if requested, ok := byLower[lower]; ok && !seen[lower] {
			seen[lower] = true
			filtered = append(filtered, requested)
		}
	}
	return filtered
}

func dedupe(skills []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if lower := strings.ToLower(skill); !seen[lower] {
			seen[lower] = true
			out = append(out, skill)
		}
	}
	return out
}
