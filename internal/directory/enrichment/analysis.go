package enrichment

import (
	"github.com/gartstein/directory/internal/directory/models"
)

// TODO: replace the fixed gap catalogue and relevance figures with calls
// to the skills engine once its API is available.

type Course struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Provider string  `json:"provider"`
	Duration string  `json:"duration"`
	Level    string  `json:"level"`
	Rating   float64 `json:"rating"`
	URL      string  `json:"url"`
}

type Gap struct {
	Skill              string   `json:"skill"`
	RequiredLevel      string   `json:"requiredLevel"`
	CurrentLevel       string   `json:"currentLevel"`
	Gap                string   `json:"gap"`
	RecommendedCourses []Course `json:"recommendedCourses"`
}

type SkillGap struct {
	EmployeeID      string   `json:"employeeId"`
	CareerGoal      string   `json:"careerGoal,omitempty"`
	SkillGaps       []Gap    `json:"skillGaps"`
	OverallGapScore int      `json:"overallGapScore"`
	PrioritySkills  []string `json:"prioritySkills"`
}

var gapCatalogue = []Gap{
	{
		Skill:         "Advanced JavaScript",
		RequiredLevel: "advanced",
		CurrentLevel:  "intermediate",
		Gap:           "medium",
		RecommendedCourses: []Course{{
			ID:       "course_1",
			Title:    "Advanced JavaScript Patterns",
			Provider: "TechAcademy",
			Duration: "40 hours",
			Level:    "advanced",
			Rating:   4.8,
			URL:      "https://marketplace.com/courses/advanced-js-patterns",
		}},
	},
	{
		Skill:         "System Design",
		RequiredLevel: "advanced",
		CurrentLevel:  "beginner",
		Gap:           "high",
		RecommendedCourses: []Course{{
			ID:       "course_2",
			Title:    "Designing Distributed Systems",
			Provider: "TechAcademy",
			Duration: "30 hours",
			Level:    "advanced",
			Rating:   4.7,
			URL:      "https://marketplace.com/courses/distributed-systems",
		}},
	},
}

// AnalyzeSkillGap lists catalogue gaps the employee does not already
// cover. An empty careerGoal falls back to the employee's own.
func AnalyzeSkillGap(emp *models.Employee, careerGoal string) *SkillGap {
	if careerGoal == "" {
		careerGoal = emp.CareerGoal
	}
	out := &SkillGap{
		EmployeeID:      emp.ID,
		CareerGoal:      careerGoal,
		SkillGaps:       []Gap{},
		OverallGapScore: 65,
		PrioritySkills:  []string{},
	}
	for _, g := range gapCatalogue {
		if emp.HasSkill(g.Skill) {
			continue
		}
		out.SkillGaps = append(out.SkillGaps, g)
		out.PrioritySkills = append(out.PrioritySkills, g.Skill)
	}
	return out
}

type Relevance struct {
	EmployeeID     string             `json:"employeeId"`
	RelevanceScore float64            `json:"relevanceScore"`
	ScoreBreakdown map[string]float64 `json:"scoreBreakdown"`
	Weights        map[string]float64 `json:"weights"`
}

// Score returns the relevance breakdown for emp.
func Score(emp *models.Employee) *Relevance {
	breakdown := map[string]float64{
		"skillsMatch":            90,
		"experience":             80,
		"enrichmentCompleteness": 85,
	}
	weights := map[string]float64{
		"skillsMatch":            0.4,
		"experience":             0.3,
		"enrichmentCompleteness": 0.3,
	}
	return &Relevance{
		EmployeeID:     emp.ID,
		RelevanceScore: 85,
		ScoreBreakdown: breakdown,
		Weights:        weights,
	}
}
