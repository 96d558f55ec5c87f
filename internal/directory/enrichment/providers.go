package enrichment

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
)

// static answers every employee with the same contribution.
type static struct {
	name string
	c    Contribution
}

func (p static) Name() string { return p.name }

func (p static) Fetch(_ context.Context, _ *models.Employee) (*Contribution, error) {
	c := Contribution{
		Skills:           append([]models.Skill(nil), p.c.Skills...),
		ValueProposition: p.c.ValueProposition,
	}
	return &c, nil
}

func skill(name, level, source string) models.Skill {
	return models.Skill{Name: name, Level: level, Source: source}
}

// DefaultProviders returns every built-in provider.
func DefaultProviders() []Provider {
	return []Provider{
		static{name: "linkedin", c: Contribution{
			Skills: []models.Skill{
				skill("Leadership", "intermediate", "linkedin"),
				skill("Project Management", "advanced", "linkedin"),
			},
			ValueProposition: "Experienced professional with strong leadership skills",
		}},
		static{name: "github", c: Contribution{
			Skills: []models.Skill{
				skill("JavaScript", "advanced", "github"),
				skill("React", "intermediate", "github"),
			},
			ValueProposition: "Active developer with modern web technologies",
		}},
		static{name: "credly", c: Contribution{
			Skills: []models.Skill{
				skill("AWS Certified", "expert", "credly"),
				skill("Agile Methodology", "intermediate", "credly"),
			},
			ValueProposition: "Certified professional with cloud expertise",
		}},
		static{name: "gemini", c: Contribution{
			Skills: []models.Skill{
				skill("AI/ML", "beginner", "gemini"),
				skill("Data Analysis", "intermediate", "gemini"),
			},
			ValueProposition: "AI-powered skill analysis and recommendations",
		}},
		static{name: "orcid", c: Contribution{
			Skills: []models.Skill{
				skill("Research", "advanced", "orcid"),
				skill("Academic Writing", "expert", "orcid"),
			},
			ValueProposition: "Research professional with academic credentials",
		}},
	}
}
