package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Weight splits for the two scoring strategies. They intentionally differ:
// the weighted scorer serves batch directory matching, the ATS scorer the
// on-demand mailbox-triggered path.
const (
	weightSkill = 50.0

	weightExperience = 50.0

	atsWeightSkill      = 50.0
	atsWeightExperience = 30.0
	atsWeightTitle      = 20.0
)

// MatchScore is the weighted 50/50 scoring breakdown
type MatchScore struct {
	Total               float64  `json:"total_score"`
	SkillComponent      float64  `json:"skill_component"`
	ExperienceComponent float64  `json:"experience_component"`
	MatchedSkills       []string `json:"matched_skills"`
	MissingSkills       []string `json:"missing_skills"`
}

// CalculateMatchScore scores a candidate with skill and experience weighted
// 50/50. Matched skills preserve the job-list casing. An empty job-skill
// list awards full skill credit; a zero minimum experience awards full
// experience credit.
func CalculateMatchScore(resumeSkills, jobSkills []string, minExperience int, resumeExperience float64) MatchScore {
	matched, missing := partitionSkills(resumeSkills, jobSkills)

	skillComponent := weightSkill
	if len(jobSkills) > 0 {
		skillComponent = float64(len(matched)) / float64(len(jobSkills)) * weightSkill
	}

	experienceComponent := weightExperience
	if minExperience > 0 {
		experienceComponent = 0
		if resumeExperience >= float64(minExperience) {
			ratio := resumeExperience / math.Max(float64(minExperience), 1)
			experienceComponent = weightExperience * math.Min(1, ratio)
		}
	}

	return MatchScore{
		Total:               clampScore(skillComponent + experienceComponent),
		SkillComponent:      skillComponent,
		ExperienceComponent: experienceComponent,
		MatchedSkills:       matched,
		MissingSkills:       missing,
	}
}

// partitionSkills splits the job-skill list into matched and missing,
// comparing case-insensitively while preserving job-list casing in the
// output
func partitionSkills(resumeSkills, jobSkills []string) (matched, missing []string) {
	resumeLower := make(map[string]bool, len(resumeSkills))
	for _, skill := range resumeSkills {
		resumeLower[strings.ToLower(skill)] = true
	}

	for _, skill := range jobSkills {
		if resumeLower[strings.ToLower(skill)] {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	return matched, missing
}

// ATSRequirements are the job inputs consumed by the ATS scorer
type ATSRequirements struct {
	RequiredSkills []string
	MinExperience  int
	TitleKeywords  []string
}

// ATSScore is the 50/30/20 scoring breakdown
type ATSScore struct {
	Total           float64  `json:"total_score"`
	SkillMatch      float64  `json:"skill_match"`
	ExperienceMatch float64  `json:"experience_match"`
	TitleMatch      float64  `json:"title_match"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
}

var atsExperienceRe = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\s*\+?\s*(?:experience|exp)`)

// CalculateATSScore scores the full resume text against the job
// requirements with skill, experience, and title components weighted
// 50/30/20
func CalculateATSScore(resumeText string, req ATSRequirements) ATSScore {
	textLower := strings.ToLower(resumeText)
	score := ATSScore{}

	for _, skill := range req.RequiredSkills {
		if strings.Contains(textLower, strings.ToLower(skill)) {
			score.MatchedSkills = append(score.MatchedSkills, skill)
		} else {
			score.MissingSkills = append(score.MissingSkills, skill)
		}
	}
	if len(req.RequiredSkills) > 0 {
		score.SkillMatch = float64(len(score.MatchedSkills)) / float64(len(req.RequiredSkills)) * atsWeightSkill
	} else {
		score.SkillMatch = atsWeightSkill
	}

	if m := atsExperienceRe.FindStringSubmatch(textLower); m != nil && req.MinExperience > 0 {
		if years, err := strconv.ParseFloat(m[1], 64); err == nil {
			score.ExperienceMatch = math.Min(atsWeightExperience,
				years/float64(req.MinExperience)*atsWeightExperience)
		}
	}

	if len(req.TitleKeywords) > 0 {
		found := 0
		for _, kw := range req.TitleKeywords {
			if strings.Contains(textLower, strings.ToLower(kw)) {
				found++
			}
		}
		score.TitleMatch = float64(found) / float64(len(req.TitleKeywords)) * atsWeightTitle
	}

	score.Total = clampScore(score.SkillMatch + score.ExperienceMatch + score.TitleMatch)
	return score
}

// ApplyPriority adjusts a score post-hoc: "high" boosts by 10% capped at
// 100, "low" reduces by 10%, anything else leaves it unchanged
func ApplyPriority(score float64, priority string) float64 {
	switch strings.ToLower(priority) {
	case "high":
		return clampScore(score * 1.1)
	case "low":
		return clampScore(score * 0.9)
	}
	return clampScore(score)
}

// clampScore rounds to one decimal place and clamps to [0, 100]
func clampScore(score float64) float64 {
	rounded := math.Round(score*10) / 10
	return math.Max(0, math.Min(100, rounded))
}
