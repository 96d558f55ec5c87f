package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/response"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

func (a *API) trainingRequestRoutes(mux *runtime.ServeMux) {
	base := apiBase + "/training-requests"
	a.route(mux, http.MethodGet, base, everyone, a.listTrainingRequests)
	a.route(mux, http.MethodPost, base, everyone, a.createTrainingRequest)
	a.route(mux, http.MethodGet, base+"/{id}", everyone, a.getTrainingRequest)
	a.route(mux, http.MethodDelete, base+"/{id}", managers, a.cancelTrainingRequest)
	a.route(mux, http.MethodGet, base+"/{id}/history", everyone, a.trainingRequestHistory)
	a.route(mux, http.MethodPost, base+"/{id}/approve", managers, a.approveTrainingRequest)
	a.route(mux, http.MethodPost, base+"/{id}/reject", managers, a.rejectTrainingRequest)
	a.route(mux, http.MethodPost, base+"/{id}/assign-trainer", managers, a.assignTrainer)
	a.route(mux, http.MethodPatch, base+"/{id}/status", managers, a.updateTrainingRequestStatus)
	// after {id}: the mux prefers later registrations
	a.route(mux, http.MethodGet, base+"/search", everyone, a.searchTrainingRequests)
	a.route(mux, http.MethodGet, base+"/statistics", managers, a.trainingRequestStatistics)
}

func requestCompany(tr *models.TrainingRequest) string {
	if tr == nil {
		return ""
	}
	return tr.CompanyID
}

func (a *API) ownRequest(ctx context.Context, id string) (fallback.Source, error) {
	return owned(ctx, a.svc.TrainingRequests.Get, id, requestCompany)
}

func requestFilter(r *http.Request) models.TrainingRequestFilter {
	q := r.URL.Query()
	return models.TrainingRequestFilter{
		CompanyID:       q.Get("companyId"),
		Status:          q.Get("status"),
		RequesterID:     q.Get("requesterId"),
		TrainerID:       q.Get("trainerId"),
		Type:            q.Get("type"),
		Urgency:         q.Get("urgency"),
		SkillCategories: list(r, "skillCategories"),
		Page:            page(r),
	}
}

func (a *API) listTrainingRequests(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f := requestFilter(r)
	if err := scopeFilter(r.Context(), &f.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.TrainingRequests.List(r.Context(), f)
	many(w, r, res, err)
}

func (a *API) searchTrainingRequests(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f := requestFilter(r)
	if err := scopeFilter(r.Context(), &f.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.TrainingRequests.Search(r.Context(), f)
	many(w, r, res, err)
}

func (a *API) trainingRequestStatistics(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f := requestFilter(r)
	if err := scopeFilter(r.Context(), &f.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.TrainingRequests.Statistics(r.Context(), f)
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) getTrainingRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.TrainingRequests.Get(r.Context(), p["id"])
	if err == nil {
		err = auth.CheckScope(r.Context(), res.Value.CompanyID)
	}
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) createTrainingRequest(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.TrainingRequestInput
	if err := decode(r, &in); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	in.RequesterID = actor(r, in.RequesterID)
	if err := auth.CheckScope(r.Context(), in.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.TrainingRequests.Create(r.Context(), in)
	one(w, r, res, err, http.StatusCreated, "Training request created successfully")
}

func (a *API) cancelTrainingRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownRequest(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.TrainingRequests.Cancel(r.Context(), p["id"])
	gone(w, r, res, err, "Training request cancelled successfully")
}

func (a *API) trainingRequestHistory(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownRequest(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.TrainingRequests.History(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}

type approveRequest struct {
	ApproverID string `json:"approverId"`
	Comments   string `json:"comments"`
}

func (a *API) approveTrainingRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req approveRequest
	if err := decodeOptional(r, &req); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownRequest(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.TrainingRequests.Approve(r.Context(), p["id"], actor(r, req.ApproverID), req.Comments)
	one(w, r, res, err, http.StatusOK, "Training request approved successfully")
}

type rejectRequest struct {
	ApproverID string `json:"approverId"`
	Reason     string `json:"reason"`
}

func (a *API) rejectTrainingRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req rejectRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownRequest(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.TrainingRequests.Reject(r.Context(), p["id"], actor(r, req.ApproverID), req.Reason)
	one(w, r, res, err, http.StatusOK, "Training request rejected")
}

type assignRequest struct {
	TrainerID  string `json:"trainerId"`
	AssignedBy string `json:"assignedBy"`
}

func (a *API) assignTrainer(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req assignRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownRequest(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.TrainingRequests.AssignTrainer(r.Context(), p["id"], req.TrainerID, actor(r, req.AssignedBy))
	one(w, r, res, err, http.StatusOK, "Trainer assigned successfully")
}

type statusRequest struct {
	Status    models.RequestStatus `json:"status"`
	ChangedBy string               `json:"changedBy"`
	Note      string               `json:"note"`
}

func (a *API) updateTrainingRequestStatus(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownRequest(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.TrainingRequests.UpdateStatus(r.Context(), p["id"], req.Status, actor(r, req.ChangedBy), req.Note)
	one(w, r, res, err, http.StatusOK, "Training request status updated successfully")
}
