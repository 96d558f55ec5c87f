package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps the offset of the last page representable.
	MaxPage      = math.MaxInt32 / MaxLimit
)

// Page selects a window of a filtered list.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps the page to 1..MaxPage and the limit to 1..MaxLimit.
func (p Page) Normalize() Page {
	switch {
	case p.Page < 1:
		p.Page = DefaultPage
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Paged is one page of results plus the unpaginated total.
type Paged[T any] struct {
	Items []T
	Total int64
	Page  Page
}

func (p Paged[T]) TotalPages() int {
	if p.Page.Limit == 0 {
		return 0
	}
	return int((p.Total + int64(p.Page.Limit) - 1) / int64(p.Page.Limit))
}

// Paginate slices items according to page.
func Paginate[T any](items []T, page Page) Paged[T] {
	page = page.Normalize()
	out := Paged[T]{Total: int64(len(items)), Page: page, Items: []T{}}
	start := page.Offset()
	if start < 0 || start >= len(items) {
		return out
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	out.Items = append(out.Items, items[start:end]...)
	return out
}

// SortByCreated orders entities by creation time, then id.
func SortByCreated[T interface {
	EntityID() string
	CreatedTime() time.Time
}](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].CreatedTime(), items[j].CreatedTime()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return items[i].EntityID() < items[j].EntityID()
	})
}

type CompanyFilter struct {
	Search   string
	Industry string
	Size     string
	Status   string
	Page
}

func (f CompanyFilter) Match(c *Company) bool {
	if c.IsDeleted() {
		return false
	}
	if f.Search != "" && !containsFold(c.Name, f.Search) && !containsFold(c.Description, f.Search) {
		return false
	}
	return eqFold(c.Industry, f.Industry) && eqFold(c.Size, f.Size) && eqFold(c.Status, f.Status)
}

type EmployeeFilter struct {
	Search       string
	CompanyID    string
	DepartmentID string
	TeamID       string
	Role         string
	Level        string
	Status       string
	Page
}

func (f EmployeeFilter) Match(emp *Employee) bool {
	if emp.IsDeleted() {
		return false
	}
	if f.Search != "" && !containsFold(emp.FullName(), f.Search) &&
		!containsFold(emp.JobTitle, f.Search) && !containsFold(emp.Email, f.Search) {
		return false
	}
	return eq(emp.CompanyID, f.CompanyID) && eq(emp.DepartmentID, f.DepartmentID) &&
		eq(emp.TeamID, f.TeamID) && eqFold(emp.Role, f.Role) &&
		eqFold(emp.Level, f.Level) && eqFold(emp.Status, f.Status)
}

type TrainerFilter struct {
	Search        string
	CompanyID     string
	TrainerType   string
	Status        string
	Skills        []string
	TeachingModes []string
	Page
}

// HasCollectionFilters reports whether filtering needs the JSON columns.
func (f TrainerFilter) HasCollectionFilters() bool {
	return len(f.Skills) > 0 || len(f.TeachingModes) > 0
}

func (f TrainerFilter) Match(t *Trainer) bool {
	if t.IsDeleted() {
		return false
	}
	if f.Search != "" && !containsFold(t.FullName(), f.Search) && !anyContainsFold(t.VerifiedTeachingSkills, f.Search) {
		return false
	}
	if len(f.Skills) > 0 && !t.TeachesAny(f.Skills) {
		return false
	}
	if len(f.TeachingModes) > 0 && !anyMatchFold(t.TeachingModes, f.TeachingModes) {
		return false
	}
	return eq(t.CompanyID, f.CompanyID) && eqFold(t.TrainerType, f.TrainerType) && eqFold(t.Status, f.Status)
}

type TrainingRequestFilter struct {
	CompanyID       string
	Status          string
	RequesterID     string
	TrainerID       string
	Type            string
	Urgency         string
	SkillCategories []string
	Page
}

func (f TrainingRequestFilter) HasCollectionFilters() bool {
	return len(f.SkillCategories) > 0
}

func (f TrainingRequestFilter) Match(r *TrainingRequest) bool {
	if r.IsDeleted() {
		return false
	}
	if len(f.SkillCategories) > 0 && !anyMatchFold(r.SkillCategories, f.SkillCategories) {
		return false
	}
	return eq(r.CompanyID, f.CompanyID) && eqFold(string(r.Status), f.Status) &&
		eq(r.RequesterID, f.RequesterID) && eq(r.TrainerID, f.TrainerID) &&
		eqFold(r.Type, f.Type) && eqFold(r.Urgency, f.Urgency)
}

// eq matches when want is empty or equal.
func eq(have, want string) bool {
	return want == "" || have == want
}

func eqFold(have, want string) bool {
	return want == "" || strings.EqualFold(have, want)
}

func anyContainsFold(have []string, needle string) bool {
	for _, h := range have {
		if containsFold(h, needle) {
			return true
		}
	}
	return false
}
