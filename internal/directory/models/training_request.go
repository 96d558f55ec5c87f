package models

import (
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
)

const KindTrainingRequest = "training_request"

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestApproved   RequestStatus = "approved"
	RequestRejected   RequestStatus = "rejected"
	RequestAssigned   RequestStatus = "assigned"
	RequestInProgress RequestStatus = "in-progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
)

// RequestStatuses lists every status in lifecycle order.
var RequestStatuses = []RequestStatus{
	RequestPending, RequestApproved, RequestRejected, RequestAssigned,
	RequestInProgress, RequestCompleted, RequestCancelled,
}

// RequestTypes lists the accepted request types.
var RequestTypes = []string{"career-path", "skill-driven", "instructor-led"}

var transitions = map[RequestStatus][]RequestStatus{
	RequestPending:    {RequestApproved, RequestRejected, RequestCancelled},
	RequestApproved:   {RequestAssigned, RequestCancelled},
	RequestAssigned:   {RequestInProgress, RequestCancelled},
	RequestInProgress: {RequestCompleted, RequestCancelled},
}

func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestCancelled || s == RequestRejected
}

// StatusChange is one entry of a request's audit trail.
type StatusChange struct {
	From      RequestStatus `json:"from"`
	To        RequestStatus `json:"to"`
	ChangedBy string        `json:"changedBy,omitempty"`
	ChangedAt time.Time     `json:"changedAt"`
	Note      string        `json:"note,omitempty"`
}

type TrainingRequest struct {
	ID                    string         `json:"id" gorm:"primaryKey;size:64"`
	RequesterID           string         `json:"requesterId" gorm:"size:64;index" validate:"required"`
	CompanyID             string         `json:"companyId" gorm:"size:64;index" validate:"required"`
	Type                  string         `json:"type" gorm:"size:20;not null" validate:"required,oneof=career-path skill-driven instructor-led"`
	Title                 string         `json:"title" gorm:"size:200;not null" validate:"required,min=5,max=200"`
	Description           string         `json:"description" gorm:"size:1000" validate:"required,max=1000"`
	SkillCategories       []string       `json:"skillCategories" gorm:"serializer:json;type:text" validate:"required"`
	TargetAudience        string         `json:"targetAudience,omitempty" gorm:"size:200" validate:"max=200"`
	ExpectedOutcomes      []string       `json:"expectedOutcomes,omitempty" gorm:"serializer:json;type:text"`
	Budget                *float64       `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Currency              string         `json:"currency" gorm:"size:3" validate:"required,len=3"`
	PreferredStartDate    *time.Time     `json:"preferredStartDate,omitempty"`
	PreferredEndDate      *time.Time     `json:"preferredEndDate,omitempty"`
	MaxParticipants       int            `json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
	Location              string         `json:"location,omitempty" gorm:"size:200" validate:"max=200"`
	DeliveryMode          string         `json:"deliveryMode,omitempty" gorm:"size:20" validate:"omitempty,oneof=in-person virtual hybrid"`
	Urgency               string         `json:"urgency" gorm:"size:10" validate:"required,oneof=low medium high"`
	BusinessJustification string         `json:"businessJustification,omitempty" gorm:"size:1000" validate:"max=1000"`
	Status                RequestStatus  `json:"status" gorm:"size:20;not null;index" validate:"required,oneof=pending approved rejected assigned in-progress completed cancelled"`
	ApproverID            string         `json:"approverId,omitempty" gorm:"size:64"`
	ApprovedAt            *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason       string         `json:"rejectionReason,omitempty" gorm:"size:500"`
	TrainerID             string         `json:"trainerId,omitempty" gorm:"size:64;index"`
	AssignedAt            *time.Time     `json:"assignedAt,omitempty"`
	History               []StatusChange `json:"history,omitempty" gorm:"serializer:json;type:text"`
	Timestamps
}

type TrainingRequestInput struct {
	RequesterID           string     `json:"requesterId"`
	CompanyID             string     `json:"companyId"`
	Type                  string     `json:"type"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	SkillCategories       []string   `json:"skillCategories"`
	TargetAudience        string     `json:"targetAudience"`
	ExpectedOutcomes      []string   `json:"expectedOutcomes"`
	Budget                *float64   `json:"budget"`
	Currency              string     `json:"currency"`
	PreferredStartDate    *time.Time `json:"preferredStartDate"`
	PreferredEndDate      *time.Time `json:"preferredEndDate"`
	MaxParticipants       int        `json:"maxParticipants"`
	Location              string     `json:"location"`
	DeliveryMode          string     `json:"deliveryMode"`
	Urgency               string     `json:"urgency"`
	BusinessJustification string     `json:"businessJustification"`
}

func NewTrainingRequest(in TrainingRequestInput) (*TrainingRequest, error) {
	r := &TrainingRequest{
		RequesterID:           in.RequesterID,
		CompanyID:             in.CompanyID,
		Type:                  in.Type,
		Title:                 in.Title,
		Description:           in.Description,
		SkillCategories:       cloneStrings(in.SkillCategories),
		TargetAudience:        in.TargetAudience,
		ExpectedOutcomes:      cloneStrings(in.ExpectedOutcomes),
		Budget:                in.Budget,
		Currency:              strings.ToUpper(in.Currency),
		PreferredStartDate:    cloneTime(in.PreferredStartDate),
		PreferredEndDate:      cloneTime(in.PreferredEndDate),
		MaxParticipants:       in.MaxParticipants,
		Location:              in.Location,
		DeliveryMode:          in.DeliveryMode,
		Urgency:               in.Urgency,
		BusinessJustification: in.BusinessJustification,
		Status:                RequestPending,
		History:               []StatusChange{},
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	if r.Urgency == "" {
		r.Urgency = "medium"
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.stampCreated()
	return r, nil
}

func (r *TrainingRequest) EntityID() string   { return r.ID }
func (r *TrainingRequest) EntityKind() string { return KindTrainingRequest }

// Validate checks field rules plus the preferred date range.
func (r *TrainingRequest) Validate() error {
	err := check(r)
	if r.PreferredStartDate == nil || r.PreferredEndDate == nil || !r.PreferredEndDate.Before(*r.PreferredStartDate) {
		return err
	}
	rangeErr := e.FieldError{Field: "preferredEndDate", Message: "must not be before preferredStartDate"}
	if verr, ok := err.(*e.Error); ok {
		verr.Details = append(verr.Details, rangeErr)
		return verr
	}
	return e.Validation(rangeErr)
}

// CanTransition reports whether the lifecycle allows moving to next.
func (r *TrainingRequest) CanTransition(next RequestStatus) bool {
	for _, allowed := range transitions[r.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (r *TrainingRequest) record(to RequestStatus, by, note string) {
	ts := now()
	r.History = append(r.History, StatusChange{From: r.Status, To: to, ChangedBy: by, ChangedAt: ts, Note: note})
	r.Status = to
	r.UpdatedAt = ts
}

// Approve stamps the approver. It does not look at the current status,
// so approving twice overwrites the earlier approver and time.
func (r *TrainingRequest) Approve(approverID, note string) {
	ts := now()
	r.ApproverID = approverID
	r.ApprovedAt = &ts
	r.record(RequestApproved, approverID, note)
}

func (r *TrainingRequest) Reject(approverID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return e.Validation(e.FieldError{Field: "reason", Message: "is required"})
	}
	r.ApproverID = approverID
	r.RejectionReason = reason
	r.record(RequestRejected, approverID, reason)
	return nil
}

func (r *TrainingRequest) AssignTrainer(trainerID, assignedBy string) {
	ts := now()
	r.TrainerID = trainerID
	r.AssignedAt = &ts
	r.record(RequestAssigned, assignedBy, "trainer "+trainerID)
}

// SetStatus moves to an arbitrary known status without lifecycle checks.
func (r *TrainingRequest) SetStatus(to RequestStatus, changedBy, note string) error {
	if !to.Valid() {
		return e.Validation(e.FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", to)})
	}
	r.record(to, changedBy, note)
	return nil
}

func (r *TrainingRequest) SoftDelete() {
	r.markDeleted()
	if r.Status != RequestCancelled {
		r.record(RequestCancelled, "", "deleted")
	}
}

func (r *TrainingRequest) IsActive() bool {
	return !r.IsDeleted() && r.Status != RequestCancelled && r.Status != RequestCompleted
}

func (r *TrainingRequest) Clone() *TrainingRequest {
	cp := *r
	cp.Timestamps = r.Timestamps.clone()
	cp.SkillCategories = cloneStrings(r.SkillCategories)
	cp.ExpectedOutcomes = cloneStrings(r.ExpectedOutcomes)
	if r.Budget != nil {
		b := *r.Budget
		cp.Budget = &b
	}
	cp.PreferredStartDate = cloneTime(r.PreferredStartDate)
	cp.PreferredEndDate = cloneTime(r.PreferredEndDate)
	cp.ApprovedAt = cloneTime(r.ApprovedAt)
	cp.AssignedAt = cloneTime(r.AssignedAt)
	if r.History != nil {
		cp.History = append([]StatusChange(nil), r.History...)
	}
	return &cp
}

// HistoryEntry is one line of the request timeline returned to clients.
type HistoryEntry struct {
	Action    string        `json:"action"`
	Status    RequestStatus `json:"status"`
	From      RequestStatus `json:"from,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Note      string        `json:"note,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Timeline returns the creation entry followed by every status change.
func (r *TrainingRequest) Timeline() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(r.History)+1)
	out = append(out, HistoryEntry{
		Action:    "created",
		Status:    RequestPending,
		Actor:     r.RequesterID,
		Timestamp: r.CreatedAt,
	})
	for _, h := range r.History {
		out = append(out, HistoryEntry{
			Action:    "status_changed",
			Status:    h.To,
			From:      h.From,
			Actor:     h.ChangedBy,
			Note:      h.Note,
			Timestamp: h.ChangedAt,
		})
	}
	return out
}
