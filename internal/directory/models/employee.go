package models

import (
	"strings"
	"time"
)

const KindEmployee = "employee"

const (
	EnrichmentNotStarted = "not_started"
	EnrichmentCompleted  = "completed"
	EnrichmentPartial    = "partial"
)

// Skill is owned by an Employee and identified by name.
type Skill struct {
	Name       string `json:"name" validate:"required,max=100"`
	Level      string `json:"level" validate:"required,oneof=beginner intermediate advanced expert"`
	Category   string `json:"category,omitempty"`
	Verified   bool   `json:"verified"`
	Source     string `json:"source,omitempty"`
	Normalized bool   `json:"normalized,omitempty"`
}

// Competence groups skills under a named capability.
type Competence struct {
	Name        string   `json:"name" validate:"required"`
	Skills      []string `json:"skills" validate:"required"`
	Level       string   `json:"level" validate:"required,oneof=beginner intermediate advanced expert"`
	Description string   `json:"description,omitempty"`
}

// Enrichment records the outcome of the last profile enrichment.
type Enrichment struct {
	Status           string     `json:"status"`
	Sources          []string   `json:"sources,omitempty"`
	ValueProposition string     `json:"valueProposition,omitempty"`
	LastEnrichedAt   *time.Time `json:"lastEnrichedAt,omitempty"`
}

type Employee struct {
	ID             string       `json:"id" gorm:"primaryKey;size:64"`
	FirstName      string       `json:"firstName" gorm:"size:50;not null" validate:"required,min=2,max=50"`
	LastName       string       `json:"lastName" gorm:"size:50;not null" validate:"required,min=2,max=50"`
	Email          string       `json:"email" gorm:"size:255;not null;index" validate:"required,email"`
	Phone          string       `json:"phone,omitempty" gorm:"size:30" validate:"max=30"`
	EmployeeNumber string       `json:"employeeNumber,omitempty" gorm:"size:64"`
	Role           string       `json:"role" gorm:"size:20;not null" validate:"required,oneof=employee manager team_lead hr_admin"`
	JobTitle       string       `json:"jobTitle" gorm:"size:100" validate:"required,max=100"`
	Level          string       `json:"level,omitempty" gorm:"size:20" validate:"omitempty,oneof=junior mid senior lead principal"`
	DepartmentID   string       `json:"departmentId" gorm:"size:64;index" validate:"required"`
	TeamID         string       `json:"teamId,omitempty" gorm:"size:64"`
	ManagerID      string       `json:"managerId,omitempty" gorm:"size:64"`
	CompanyID      string       `json:"companyId,omitempty" gorm:"size:64;index"`
	HireDate       *time.Time   `json:"hireDate,omitempty"`
	Status         string       `json:"status" gorm:"size:20;not null;index" validate:"required,oneof=active inactive terminated"`
	Skills         []Skill      `json:"skills" gorm:"serializer:json;type:text" validate:"dive"`
	Competences    []Competence `json:"competences" gorm:"serializer:json;type:text" validate:"dive"`
	Enrichment     Enrichment   `json:"enrichment" gorm:"serializer:json;type:text"`
	RelevanceScore float64      `json:"relevanceScore"`
	CareerGoal     string       `json:"careerGoal,omitempty" gorm:"size:200"`
	Timestamps
}

type EmployeeInput struct {
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	EmployeeNumber string     `json:"employeeNumber"`
	Role           string     `json:"role"`
	JobTitle       string     `json:"jobTitle"`
	Level          string     `json:"level"`
	DepartmentID   string     `json:"departmentId"`
	TeamID         string     `json:"teamId"`
	ManagerID      string     `json:"managerId"`
	CompanyID      string     `json:"companyId"`
	HireDate       *time.Time `json:"hireDate"`
	Status         string     `json:"status"`
	CareerGoal     string     `json:"careerGoal"`
	Skills         []Skill    `json:"skills"`
}

type EmployeeUpdate struct {
	FirstName    *string    `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName     *string    `json:"lastName" validate:"omitempty,min=2,max=50"`
	Email        *string    `json:"email" validate:"omitempty,email"`
	Phone        *string    `json:"phone" validate:"omitempty,max=30"`
	Role         *string    `json:"role" validate:"omitempty,oneof=employee manager team_lead hr_admin"`
	JobTitle     *string    `json:"jobTitle" validate:"omitempty,max=100"`
	Level        *string    `json:"level" validate:"omitempty,oneof=junior mid senior lead principal"`
	DepartmentID *string    `json:"departmentId" validate:"omitempty,min=1"`
	TeamID       *string    `json:"teamId"`
	ManagerID    *string    `json:"managerId"`
	HireDate     *time.Time `json:"hireDate"`
	Status       *string    `json:"status" validate:"omitempty,oneof=active inactive terminated"`
	CareerGoal   *string    `json:"careerGoal" validate:"omitempty,max=200"`
}

// SkillsUpdate adds skills by name and optionally replaces competences.
type SkillsUpdate struct {
	Skills      []Skill      `json:"skills" validate:"dive"`
	Competences []Competence `json:"competences" validate:"dive"`
}

func NewEmployee(in EmployeeInput) (*Employee, error) {
	emp := &Employee{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		EmployeeNumber: in.EmployeeNumber,
		Role:           in.Role,
		JobTitle:       in.JobTitle,
		Level:          in.Level,
		DepartmentID:   in.DepartmentID,
		TeamID:         in.TeamID,
		ManagerID:      in.ManagerID,
		CompanyID:      in.CompanyID,
		HireDate:       cloneTime(in.HireDate),
		Status:         in.Status,
		CareerGoal:     in.CareerGoal,
		Skills:         []Skill{},
		Competences:    []Competence{},
		Enrichment:     Enrichment{Status: EnrichmentNotStarted},
	}
	if emp.Role == "" {
		emp.Role = "employee"
	}
	if emp.Status == "" {
		emp.Status = StatusActive
	}
	for _, s := range in.Skills {
		emp.appendSkill(s)
	}
	if err := emp.Validate(); err != nil {
		return nil, err
	}
	emp.stampCreated()
	return emp, nil
}

func (emp *Employee) EntityID() string   { return emp.ID }
func (emp *Employee) EntityKind() string { return KindEmployee }

func (emp *Employee) Validate() error { return check(emp) }

func (u *EmployeeUpdate) Validate() error { return check(u) }

func (u *SkillsUpdate) Validate() error { return check(u) }

func (emp *Employee) FullName() string {
	return emp.FirstName + " " + emp.LastName
}

func (emp *Employee) Update(u EmployeeUpdate) {
	setString(&emp.FirstName, u.FirstName)
	setString(&emp.LastName, u.LastName)
	setString(&emp.Email, u.Email)
	setString(&emp.Phone, u.Phone)
	setString(&emp.Role, u.Role)
	setString(&emp.JobTitle, u.JobTitle)
	setString(&emp.Level, u.Level)
	setString(&emp.DepartmentID, u.DepartmentID)
	setString(&emp.TeamID, u.TeamID)
	setString(&emp.ManagerID, u.ManagerID)
	if u.HireDate != nil {
		emp.HireDate = cloneTime(u.HireDate)
	}
	setString(&emp.Status, u.Status)
	setString(&emp.CareerGoal, u.CareerGoal)
	emp.touch()
}

// HasSkill matches skill names case-insensitively.
func (emp *Employee) HasSkill(name string) bool {
	for _, s := range emp.Skills {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// AddSkill appends s unless a skill with the same name exists.
// It reports whether the list changed.
func (emp *Employee) AddSkill(s Skill) bool {
	if !emp.appendSkill(s) {
		return false
	}
	emp.touch()
	return true
}

func (emp *Employee) appendSkill(s Skill) bool {
	if emp.HasSkill(s.Name) {
		return false
	}
	emp.Skills = append(emp.Skills, s)
	return true
}

func (emp *Employee) RemoveSkill(name string) bool {
	for i, s := range emp.Skills {
		if strings.EqualFold(s.Name, name) {
			emp.Skills = append(emp.Skills[:i], emp.Skills[i+1:]...)
			emp.touch()
			return true
		}
	}
	return false
}

func (emp *Employee) SetCompetences(cs []Competence) {
	emp.Competences = cs
	emp.touch()
}

// RecordEnrichment merges provider skills and stamps the enrichment status.
// partial marks that some requested providers did not contribute.
func (emp *Employee) RecordEnrichment(skills []Skill, sources []string, valueProposition string, partial bool) {
	for _, s := range skills {
		emp.appendSkill(s)
	}
	ts := now()
	status := EnrichmentCompleted
	if partial {
		status = EnrichmentPartial
	}
	emp.Enrichment = Enrichment{
		Status:           status,
		Sources:          cloneStrings(sources),
		ValueProposition: valueProposition,
		LastEnrichedAt:   &ts,
	}
	emp.touch()
}

func (emp *Employee) SoftDelete() {
	emp.markDeleted()
	emp.Status = StatusInactive
}

func (emp *Employee) IsActive() bool {
	return emp.Status == StatusActive && !emp.IsDeleted()
}

func (emp *Employee) Clone() *Employee {
	cp := *emp
	cp.Timestamps = emp.Timestamps.clone()
	cp.HireDate = cloneTime(emp.HireDate)
	if emp.Skills != nil {
		cp.Skills = append([]Skill(nil), emp.Skills...)
	}
	if emp.Competences != nil {
		cp.Competences = make([]Competence, len(emp.Competences))
		for i, c := range emp.Competences {
			c.Skills = cloneStrings(c.Skills)
			cp.Competences[i] = c
		}
	}
	cp.Enrichment.Sources = cloneStrings(emp.Enrichment.Sources)
	cp.Enrichment.LastEnrichedAt = cloneTime(emp.Enrichment.LastEnrichedAt)
	return &cp
}
