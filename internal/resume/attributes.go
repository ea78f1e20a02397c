package resume

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

// maxEducationLines caps how many degree lines are reported per resume
const maxEducationLines = 3

// maxDateRanges caps how many work-history date ranges contribute to the
// experience estimate
const maxDateRanges = 3

// Extractor derives candidate attributes from resume text. Implementations
// must be deterministic in output shape: the AI-assisted extractor falls
// back to the rule-based one on any failure.
type Extractor interface {
	Extract(ctx context.Context, text string, requestedSkills []string) (models.CandidateAttributes, error)
}

// RuleBased extracts candidate attributes with pattern matching only.
// It performs no I/O and never fails.
type RuleBased struct {
	now func() time.Time
}

// NewRuleBased creates the default rule-based extractor
func NewRuleBased() *RuleBased {
	return &RuleBased{now: time.Now}
}

// Extract derives all candidate attributes from text. When requestedSkills
// is non-empty the skill list is the subset of requested skills found in
// the text; otherwise the free-form skills section is used.
func (r *RuleBased) Extract(_ context.Context, text string, requestedSkills []string) (models.CandidateAttributes, error) {
	skills := MatchSkills(text, requestedSkills)
	if len(requestedSkills) == 0 {
		skills = SkillsSection(text)
	}

	return models.CandidateAttributes{
		Name:            ExtractName(text),
		Email:           ExtractEmail(text),
		Phone:           ExtractPhone(text),
		Skills:          skills,
		ExperienceYears: r.extractExperience(text),
		Education:       ExtractEducation(text),
	}, nil
}

var nameLabelRe = regexp.MustCompile(`(?im)^(?:full name|name)\s*:\s*(.+)$`)

// ExtractName finds the candidate name. Rules are tried in order: a short
// title-cased line near the top, a "Name:" label, the first non-empty line,
// then the UnknownCandidate fallback.
func ExtractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 3 {
			continue
		}
		if !allTitleCased(words) {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "resume") || strings.Contains(lower, "cv") || strings.Contains(lower, "vitae") {
			continue
		}
		return line
	}

	if m := nameLabelRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}

	return models.UnknownCandidate
}

func allTitleCased(words []string) bool {
	for _, word := range words {
		runes := []rune(word)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
		for _, r := range runes[1:] {
			if unicode.IsLetter(r) && unicode.IsUpper(r) {
				return false
			}
		}
	}
	return true
}

var emailRe = regexp.MustCompile(`[\w.+\-]+@[\w.\-]+\.\w{2,}`)

// ExtractEmail returns the first email address in the text, or empty
func ExtractEmail(text string) string {
	return emailRe.FindString(text)
}

var phonePatterns = []*regexp.Regexp{
	// North-American style, optional country code
	regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
	// Generic international digit grouping
	regexp.MustCompile(`(?:\+?\d{4}[-.\s]?){2,4}`),
}

// ExtractPhone returns the first phone number found, trying a
// North-American pattern before a generic international one
func ExtractPhone(text string) string {
	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\s*\+?\s*(?:of\s*)?experience`),
	regexp.MustCompile(`(?i)experience\s*:?\s*(\d+)\s*(?:years?|yrs?)`),
	regexp.MustCompile(`(?i)(\d+)\s*\+\s*years?`),
}

const monthAlt = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`

var (
	dateRangeRe = regexp.MustCompile(`(?i)(` + monthAlt + `[a-z]*\.?\s*\d{4})\s*(?:to|–|—|-)\s*(` + monthAlt + `[a-z]*\.?\s*\d{4}|present|now|current)`)
	monthYearRe = regexp.MustCompile(`(?i)(` + monthAlt + `)[a-z]*\.?\s*(\d{4})`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ExtractExperience estimates the candidate's years of experience from
// text. Explicit "<N> years experience" statements win; otherwise work
// history date ranges are summed.
func ExtractExperience(text string) float64 {
	return NewRuleBased().extractExperience(text)
}

func (r *RuleBased) extractExperience(text string) float64 {
	for _, re := range experiencePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if years, err := strconv.ParseFloat(m[1], 64); err == nil {
				return math.Max(0, years)
			}
		}
	}
	return r.experienceFromDateRanges(text)
}

// experienceFromDateRanges sums day spans of up to the first three detected
// month-year ranges and converts to years
func (r *RuleBased) experienceFromDateRanges(text string) float64 {
	ranges := dateRangeRe.FindAllStringSubmatch(text, -1)
	if len(ranges) > maxDateRanges {
		ranges = ranges[:maxDateRanges]
	}

	now := r.now()
	var totalDays float64
	for _, m := range ranges {
		start, ok := parseMonthYear(m[1])
		if !ok {
			continue
		}
		end := now
		if !isOngoing(m[2]) {
			parsed, ok := parseMonthYear(m[2])
			if !ok {
				continue
			}
			end = parsed
		}
		if days := end.Sub(start).Hours() / 24; days > 0 {
			totalDays += days
		}
	}

	return math.Round(totalDays/365*10) / 10
}

func parseMonthYear(s string) (time.Time, bool) {
	m := monthYearRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month := monthNumbers[strings.ToLower(m[1])]
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
}

func isOngoing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present", "now", "current":
		return true
	}
	return false
}

// minPartialWordLen is the shortest skill word considered in the partial
// matching pass
const minPartialWordLen = 4

// MatchSkills returns the requested skills found in the text, preserving
// the requested casing. An exact case-insensitive substring pass runs
// first; only if it finds nothing does a partial pass match individual
// words of multi-word skill terms.
func MatchSkills(text string, requestedSkills []string) []string {
	textLower := strings.ToLower(text)

	var matched []string
	seen := make(map[string]bool)
	for _, skill := range requestedSkills {
		lower := strings.ToLower(skill)
		if lower == "" || seen[lower] {
			continue
		}
		if strings.Contains(textLower, lower) {
			matched = append(matched, skill)
			seen[lower] = true
		}
	}
	if len(matched) > 0 {
		return matched
	}

	for _, skill := range requestedSkills {
		lower := strings.ToLower(skill)
		if lower == "" || seen[lower] {
			continue
		}
		for _, word := range strings.Fields(lower) {
			if len(word) >= minPartialWordLen && strings.Contains(textLower, word) {
				matched = append(matched, skill)
				seen[lower] = true
				break
			}
		}
	}
	return matched
}

var (
	skillsSectionRe = regexp.MustCompile(`(?is)(?:technical\s+)?skills:?\s*(.*?)(?:\n\s*\n|experience|work history|$)`)
	skillSplitRe    = regexp.MustCompile(`[,•·\-—]`)
)

// SkillsSection extracts a free-form skill list from a dedicated "Skills"
// section, split on common delimiters and deduplicated
func SkillsSection(text string) []string {
	m := skillsSectionRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var skills []string
	seen := make(map[string]bool)
	for _, part := range skillSplitRe.Split(m[1], -1) {
		skill := strings.TrimSpace(part)
		if skill == "" {
			continue
		}
		if lower := strings.ToLower(skill); !seen[lower] {
			seen[lower] = true
			skills = append(skills, skill)
		}
	}
	return skills
}

var degreeRe = regexp.MustCompile(`(?i)\b(?:ph\.?d|mba|masters?|bachelors?|b\.?tech|m\.?tech|bsc|msc|bs|ms)\b`)

// ExtractEducation returns lines mentioning a degree keyword, capped at
// three
func ExtractEducation(text string) []string {
	var found []string
	for _, line := range strings.Split(text, "\n") {
		if degreeRe.MatchString(line) {
			found = append(found, strings.TrimSpace(line))
			if len(found) == maxEducationLines {
				break
			}
		}
	}
	return found
}
