package models

import (
	"fmt"
	"time"
)

const KindTrainer = "trainer"

type Certification struct {
	ID           string     `json:"id"`
	Name         string     `json:"name" validate:"required"`
	Issuer       string     `json:"issuer" validate:"required"`
	IssueDate    time.Time  `json:"issueDate" validate:"required"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
	CredentialID string     `json:"credentialId,omitempty"`
}

// Slot is one day of a weekly schedule, times in HH:MM.
type Slot struct {
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
	Available bool   `json:"available"`
}

type Availability struct {
	Timezone string          `json:"timezone" validate:"required,timezone"`
	Schedule map[string]Slot `json:"schedule" validate:"required,min=1,dive"`
}

type Pricing struct {
	HourlyRate float64 `json:"hourlyRate,omitempty" validate:"gte=0"`
	DailyRate  float64 `json:"dailyRate,omitempty" validate:"gte=0"`
	Currency   string  `json:"currency" validate:"omitempty,len=3"`
}

type Trainer struct {
	ID                     string          `json:"id" gorm:"primaryKey;size:64"`
	FirstName              string          `json:"firstName" gorm:"size:50;not null" validate:"required,min=2,max=50"`
	LastName               string          `json:"lastName" gorm:"size:50;not null" validate:"required,min=2,max=50"`
	Email                  string          `json:"email" gorm:"size:255;not null" validate:"required,email"`
	CompanyID              string          `json:"companyId" gorm:"size:64;index" validate:"required"`
	TrainerType            string          `json:"trainerType" gorm:"size:20;not null" validate:"required,oneof=internal external freelance"`
	TeachingModes          []string        `json:"teachingMode" gorm:"serializer:json;type:text" validate:"required,min=1,dive,oneof=in-person virtual hybrid"`
	VerifiedTeachingSkills []string        `json:"verifiedTeachingSkills" gorm:"serializer:json;type:text" validate:"required"`
	Certifications         []Certification `json:"certifications" gorm:"serializer:json;type:text" validate:"dive"`
	Languages              []string        `json:"languages" gorm:"serializer:json;type:text"`
	Availability           Availability    `json:"availability" gorm:"serializer:json;type:text"`
	Pricing                *Pricing        `json:"pricing,omitempty" gorm:"serializer:json;type:text"`
	AIEditingEnabled       bool            `json:"aiEditingEnabled" gorm:"column:ai_editing_enabled"`
	PublishPermission      bool            `json:"publishPermission"`
	AverageRating          float64         `json:"averageRating"`
	ReviewCount            int             `json:"reviewCount"`
	TotalStudentsTaught    int             `json:"totalStudentsTaught"`
	Status                 string          `json:"status" gorm:"size:20;not null;index" validate:"required,oneof=active inactive suspended"`
	Timestamps
}

type TrainerInput struct {
	FirstName              string          `json:"firstName"`
	LastName               string          `json:"lastName"`
	Email                  string          `json:"email"`
	CompanyID              string          `json:"companyId"`
	TrainerType            string          `json:"trainerType"`
	TeachingModes          []string        `json:"teachingMode"`
	VerifiedTeachingSkills []string        `json:"verifiedTeachingSkills"`
	Certifications         []Certification `json:"certifications"`
	Languages              []string        `json:"languages"`
	Availability           Availability    `json:"availability"`
	Pricing                *Pricing        `json:"pricing"`
	AIEditingEnabled       bool            `json:"aiEditingEnabled"`
	PublishPermission      bool            `json:"publishPermission"`
	Status                 string          `json:"status"`
}

type TrainerUpdate struct {
	FirstName              *string       `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName               *string       `json:"lastName" validate:"omitempty,min=2,max=50"`
	Email                  *string       `json:"email" validate:"omitempty,email"`
	TrainerType            *string       `json:"trainerType" validate:"omitempty,oneof=internal external freelance"`
	TeachingModes          []string      `json:"teachingMode" validate:"omitempty,min=1,dive,oneof=in-person virtual hybrid"`
	VerifiedTeachingSkills []string      `json:"verifiedTeachingSkills"`
	Languages              []string      `json:"languages"`
	Availability           *Availability `json:"availability"`
	Pricing                *Pricing      `json:"pricing"`
	AIEditingEnabled       *bool         `json:"aiEditingEnabled"`
	PublishPermission      *bool         `json:"publishPermission"`
	Status                 *string       `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// CertificationsUpdate adds and removes certifications in one call.
type CertificationsUpdate struct {
	Add    []Certification `json:"add" validate:"dive"`
	Remove []string        `json:"remove"`
}

func NewTrainer(in TrainerInput) (*Trainer, error) {
	t := &Trainer{
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		Email:                  in.Email,
		CompanyID:              in.CompanyID,
		TrainerType:            in.TrainerType,
		TeachingModes:          cloneStrings(in.TeachingModes),
		VerifiedTeachingSkills: cloneStrings(in.VerifiedTeachingSkills),
		Languages:              cloneStrings(in.Languages),
		Availability:           in.Availability,
		AIEditingEnabled:       in.AIEditingEnabled,
		PublishPermission:      in.PublishPermission,
		Status:                 in.Status,
		Certifications:         []Certification{},
	}
	if in.Pricing != nil {
		p := *in.Pricing
		t.Pricing = &p
	}
	if len(t.Languages) == 0 {
		t.Languages = []string{"English"}
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.Pricing != nil && t.Pricing.Currency == "" {
		t.Pricing.Currency = "USD"
	}
	for _, c := range in.Certifications {
		t.appendCertification(c)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.stampCreated()
	return t, nil
}

func (t *Trainer) EntityID() string   { return t.ID }
func (t *Trainer) EntityKind() string { return KindTrainer }

func (t *Trainer) Validate() error { return check(t) }

func (u *TrainerUpdate) Validate() error { return check(u) }

func (u *CertificationsUpdate) Validate() error { return check(u) }

func (a *Availability) Validate() error { return check(a) }

func (t *Trainer) FullName() string {
	return t.FirstName + " " + t.LastName
}

func (t *Trainer) Update(u TrainerUpdate) {
	setString(&t.FirstName, u.FirstName)
	setString(&t.LastName, u.LastName)
	setString(&t.Email, u.Email)
	setString(&t.TrainerType, u.TrainerType)
	if u.TeachingModes != nil {
		t.TeachingModes = cloneStrings(u.TeachingModes)
	}
	if u.VerifiedTeachingSkills != nil {
		t.VerifiedTeachingSkills = cloneStrings(u.VerifiedTeachingSkills)
	}
	if u.Languages != nil {
		t.Languages = cloneStrings(u.Languages)
	}
	if u.Availability != nil {
		t.Availability = *u.Availability
	}
	if u.Pricing != nil {
		p := *u.Pricing
		t.Pricing = &p
	}
	if u.AIEditingEnabled != nil {
		t.AIEditingEnabled = *u.AIEditingEnabled
	}
	if u.PublishPermission != nil {
		t.PublishPermission = *u.PublishPermission
	}
	setString(&t.Status, u.Status)
	t.touch()
}

func (t *Trainer) AddCertification(c Certification) {
	t.appendCertification(c)
	t.touch()
}

func (t *Trainer) appendCertification(c Certification) {
	if c.ID == "" {
		c.ID = fmt.Sprintf("cert_%d_%d", now().UnixMilli(), len(t.Certifications)+1)
	}
	t.Certifications = append(t.Certifications, c)
}

func (t *Trainer) RemoveCertification(id string) bool {
	for i, c := range t.Certifications {
		if c.ID == id {
			t.Certifications = append(t.Certifications[:i], t.Certifications[i+1:]...)
			t.touch()
			return true
		}
	}
	return false
}

// UpdateRating folds one review into the running mean. The count is
// incremented first so the mean is over reviewCount ratings.
func (t *Trainer) UpdateRating(rating float64) {
	t.ReviewCount++
	n := float64(t.ReviewCount)
	t.AverageRating = (t.AverageRating*(n-1) + rating) / n
	t.touch()
}

func (t *Trainer) SetAvailability(a Availability) {
	t.Availability = a
	t.touch()
}

// HasOpenSlot reports whether any schedule day is marked available.
func (t *Trainer) HasOpenSlot() bool {
	for _, s := range t.Availability.Schedule {
		if s.Available {
			return true
		}
	}
	return false
}

func (t *Trainer) TeachesAny(skills []string) bool {
	return anyMatchFold(t.VerifiedTeachingSkills, skills)
}

func (t *Trainer) SoftDelete() {
	t.markDeleted()
	t.Status = StatusInactive
}

func (t *Trainer) IsActive() bool {
	return t.Status == StatusActive && !t.IsDeleted()
}

func (t *Trainer) Clone() *Trainer {
	cp := *t
	cp.Timestamps = t.Timestamps.clone()
	cp.TeachingModes = cloneStrings(t.TeachingModes)
	cp.VerifiedTeachingSkills = cloneStrings(t.VerifiedTeachingSkills)
	cp.Languages = cloneStrings(t.Languages)
	if t.Certifications != nil {
		cp.Certifications = make([]Certification, len(t.Certifications))
		for i, c := range t.Certifications {
			c.ExpiryDate = cloneTime(c.ExpiryDate)
			cp.Certifications[i] = c
		}
	}
	if t.Availability.Schedule != nil {
		cp.Availability.Schedule = make(map[string]Slot, len(t.Availability.Schedule))
		for day, s := range t.Availability.Schedule {
			cp.Availability.Schedule[day] = s
		}
	}
	if t.Pricing != nil {
		p := *t.Pricing
		cp.Pricing = &p
	}
	return &cp
}
