package enrichment

import (
	"context"
	"errors"
	"testing"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failing struct{ name string }

func (f failing) Name() string { return f.name }

func (f failing) Fetch(context.Context, *models.Employee) (*Contribution, error) {
	return nil, errors.New("provider timeout")
}

func employee() *models.Employee {
	return &models.Employee{ID: "emp_1", CareerGoal: "Staff Engineer", Skills: []models.Skill{{Name: "System Design", Level: "advanced"}}}
}

func TestEnrich(t *testing.T) {
	tests := []struct {
		name        string
		providers   []Provider
		sources     []string
		wantSources []string
		wantFailed  []string
		wantSkills  int
		wantErr     bool
	}{
		{
			name:        "defaults",
			providers:   DefaultProviders(),
			wantSources: []string{"linkedin", "github", "credly", "gemini"},
			wantSkills:  8,
		},
		{
			name:        "one provider fails",
			providers:   append(DefaultProviders()[:1], failing{name: "github"}),
			sources:     []string{"linkedin", "github"},
			wantSources: []string{"linkedin"},
			wantFailed:  []string{"github"},
			wantSkills:  2,
		},
		{
			name:        "unknown provider is skipped",
			providers:   DefaultProviders(),
			sources:     []string{"orcid", "myspace"},
			wantSources: []string{"orcid"},
			wantFailed:  []string{"myspace"},
			wantSkills:  2,
		},
		{
			name:       "all fail",
			providers:  []Provider{failing{name: "linkedin"}, failing{name: "github"}},
			sources:    []string{"linkedin", "github"},
			wantFailed: []string{"linkedin", "github"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			en := New(zap.New(core), tt.providers...)

			report, err := en.Enrich(context.Background(), employee(), tt.sources)
			assert.Equal(t, len(tt.wantFailed), logs.FilterMessage("Enrichment provider failed").Len())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, e.KindServiceUnavailable, e.Classify(err))
				assert.ErrorContains(t, err, "All enrichment providers failed")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSources, report.Sources)
			assert.Equal(t, tt.wantFailed, report.Failed)
			assert.Equal(t, len(tt.wantFailed) > 0, report.Partial())
			assert.Len(t, report.Skills, tt.wantSkills)
			for _, s := range report.Skills {
				assert.True(t, s.Normalized)
				assert.NotEmpty(t, s.Category)
			}
		})
	}
}

func TestEnrich_ValueProposition(t *testing.T) {
	en := New(zap.NewNop(), DefaultProviders()...)
	report, err := en.Enrich(context.Background(), employee(), []string{"linkedin", "credly"})
	require.NoError(t, err)
	assert.Equal(t,
		"Experienced professional with strong leadership skills Certified professional with cloud expertise",
		report.ValueProposition)
}

func TestCategorize(t *testing.T) {
	tests := map[string]string{
		"JavaScript":         "Programming",
		"React":              "Frontend",
		"Node.js":            "Backend",
		"AWS":                "Cloud",
		"Leadership":         "Soft Skills",
		"Project Management": "Management",
		"AWS Certified":      "Other",
		"javascript":         "Other",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, Categorize(name))
		})
	}
}

func TestAnalyzeSkillGap(t *testing.T) {
	emp := employee()

	gap := AnalyzeSkillGap(emp, "")
	assert.Equal(t, "Staff Engineer", gap.CareerGoal)
	require.Len(t, gap.SkillGaps, 1)
	assert.Equal(t, "Advanced JavaScript", gap.SkillGaps[0].Skill)
	assert.Equal(t, []string{"Advanced JavaScript"}, gap.PrioritySkills)

	gap = AnalyzeSkillGap(&models.Employee{ID: "emp_2"}, "Architect")
	assert.Equal(t, "Architect", gap.CareerGoal)
	assert.Len(t, gap.SkillGaps, 2)
}

func TestScore(t *testing.T) {
	r := Score(employee())
	assert.Equal(t, 85.0, r.RelevanceScore)

	weighted := 0.0
	for k, w := range r.Weights {
		weighted += w * r.ScoreBreakdown[k]
	}
	assert.InDelta(t, r.RelevanceScore, weighted, 1)
}
