// Package enrichment gathers skills for an employee profile from external
// providers and normalises them. The providers shipped here return fixed
// data; they stand in for the real LinkedIn, GitHub, Credly, Gemini and
// ORCID integrations.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

var errUnknownProvider = errors.New("unknown provider")

// DefaultSources is used when a caller names no providers.
var DefaultSources = []string{"linkedin", "github", "credly", "gemini"}

// Contribution is what one provider adds to a profile.
type Contribution struct {
	Skills           []models.Skill
	ValueProposition string
}

type Provider interface {
	Name() string
	Fetch(ctx context.Context, emp *models.Employee) (*Contribution, error)
}

// Report is the aggregate of every provider that answered.
type Report struct {
	Skills           []models.Skill `json:"normalizedSkills"`
	Sources          []string       `json:"sources"`
	Failed           []string       `json:"failedSources,omitempty"`
	ValueProposition string         `json:"valueProposition"`
}

// Partial reports whether some requested provider did not contribute.
func (r *Report) Partial() bool { return len(r.Failed) > 0 }

type Enricher struct {
	providers map[string]Provider
	logger    *zap.Logger
}

func New(logger *zap.Logger, providers ...Provider) *Enricher {
	en := &Enricher{providers: make(map[string]Provider, len(providers)), logger: logger.Named("enrichment")}
	for _, p := range providers {
		en.providers[p.Name()] = p
	}
	return en
}

// Known reports whether a provider is registered under name.
func (en *Enricher) Known(name string) bool {
	_, ok := en.providers[name]
	return ok
}

// Enrich calls each named provider in turn. A failing provider is logged
// and left out; the call fails only when no provider answered.
func (en *Enricher) Enrich(ctx context.Context, emp *models.Employee, names []string) (*Report, error) {
	if len(names) == 0 {
		names = DefaultSources
	}
	report := &Report{Skills: []models.Skill{}, Sources: []string{}}
	var vp []string
	var errs []error
	for _, name := range names {
		c, err := en.fetch(ctx, name, emp)
		if err != nil {
			en.logger.Warn("Enrichment provider failed",
				zap.String("provider", name),
				zap.String("employee_id", emp.ID),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		report.Sources = append(report.Sources, name)
		report.Skills = append(report.Skills, Normalize(c.Skills)...)
		if c.ValueProposition != "" {
			vp = append(vp, c.ValueProposition)
		}
	}
	if len(report.Sources) == 0 {
		return nil, e.Unavailable("All enrichment providers failed", errors.Join(errs...))
	}
	report.ValueProposition = strings.Join(vp, " ")
	return report, nil
}

func (en *Enricher) fetch(ctx context.Context, name string, emp *models.Employee) (*Contribution, error) {
	p, ok := en.providers[name]
	if !ok {
		return nil, errUnknownProvider
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Fetch(ctx, emp)
}

var categories = map[string]string{
	"JavaScript":         "Programming",
	"React":              "Frontend",
	"Node.js":            "Backend",
	"AWS":                "Cloud",
	"Leadership":         "Soft Skills",
	"Project Management": "Management",
}

// Categorize maps a skill name onto its catalogue category.
func Categorize(name string) string {
	if c, ok := categories[name]; ok {
		return c
	}
	return "Other"
}

// Normalize tags each skill with its category.
func Normalize(skills []models.Skill) []models.Skill {
	out := make([]models.Skill, 0, len(skills))
	for _, s := range skills {
		s.Category = Categorize(s.Name)
		s.Normalized = true
		out = append(out, s)
	}
	return out
}
