// Package models defines the directory entities (Company, Employee,
// Trainer, TrainingRequest), their partial-update records, list filters,
// and the mutators that keep entity invariants.
//
// Every entity carries CreatedAt, UpdatedAt and DeletedAt. Update never
// touches ID or CreatedAt, and SoftDelete stamps DeletedAt instead of
// removing the record. The structs double as GORM models for the live
// datastore.
package models

import (
	"strings"
	"time"
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

const (
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusSuspended  = "suspended"
	StatusTerminated = "terminated"
)

// Entity is implemented by every record the directory stores.
type Entity interface {
	EntityID() string
	EntityKind() string
	DeletedTime() *time.Time
}

// Timestamps is embedded by every entity.
type Timestamps struct {
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"autoUpdateTime:false"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

func (t *Timestamps) DeletedTime() *time.Time { return t.DeletedAt }

func (t *Timestamps) CreatedTime() time.Time { return t.CreatedAt }

// IsDeleted reports whether the record was soft-deleted.
func (t *Timestamps) IsDeleted() bool { return t.DeletedAt != nil }

func (t *Timestamps) touch() { t.UpdatedAt = now() }

func (t *Timestamps) stampCreated() {
	ts := now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = ts
	}
	t.UpdatedAt = ts
}

func (t *Timestamps) markDeleted() {
	ts := now()
	t.DeletedAt = &ts
	t.UpdatedAt = ts
}

func (t Timestamps) clone() Timestamps {
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		t.DeletedAt = &d
	}
	return t
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := *in
	return &t
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// anyMatchFold reports whether any of want appears in have, ignoring case.
func anyMatchFold(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
