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

func (a *API) trainerRoutes(mux *runtime.ServeMux) {
	base := apiBase + "/trainers"
	a.route(mux, http.MethodGet, base, everyone, a.listTrainers)
	a.route(mux, http.MethodPost, base, managers, a.createTrainer)
	a.route(mux, http.MethodGet, base+"/{id}", everyone, a.getTrainer)
	a.route(mux, http.MethodPut, base+"/{id}", managers, a.updateTrainer)
	a.route(mux, http.MethodDelete, base+"/{id}", adminOnly, a.deleteTrainer)
	a.route(mux, http.MethodGet, base+"/{id}/availability", everyone, a.trainerAvailability)
	a.route(mux, http.MethodPatch, base+"/{id}/availability", managers, a.updateTrainerAvailability)
	a.route(mux, http.MethodPatch, base+"/{id}/certifications", managers, a.updateTrainerCertifications)
	a.route(mux, http.MethodGet, base+"/{id}/course-history", everyone, a.trainerCourseHistory)
	a.route(mux, http.MethodPost, base+"/{id}/ratings", everyone, a.rateTrainer)
	// after {id}: the mux prefers later registrations
	a.route(mux, http.MethodGet, base+"/search", everyone, a.searchTrainers)
}

func trainerCompany(t *models.Trainer) string {
	if t == nil {
		return ""
	}
	return t.CompanyID
}

func (a *API) ownTrainer(ctx context.Context, id string) (fallback.Source, error) {
	return owned(ctx, a.svc.Trainers.Get, id, trainerCompany)
}

func trainerFilter(r *http.Request) models.TrainerFilter {
	q := r.URL.Query()
	return models.TrainerFilter{
		Search:        q.Get("search"),
		CompanyID:     q.Get("companyId"),
		TrainerType:   q.Get("trainerType"),
		Status:        q.Get("status"),
		Skills:        list(r, "skills"),
		TeachingModes: list(r, "teachingModes"),
		Page:          page(r),
	}
}

func (a *API) listTrainers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f := trainerFilter(r)
	if err := auth.CheckScope(r.Context(), f.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Trainers.List(r.Context(), f)
	many(w, r, res, err)
}

// searchTrainers spans every company unless one is named: external
// trainers serve more than their own company.
func (a *API) searchTrainers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f := trainerFilter(r)
	if err := auth.CheckScope(r.Context(), f.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Trainers.Search(r.Context(), f)
	many(w, r, res, err)
}

func (a *API) getTrainer(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.Trainers.Get(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) createTrainer(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.TrainerInput
	if err := decode(r, &in); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if err := auth.CheckScope(r.Context(), in.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Trainers.Create(r.Context(), in)
	one(w, r, res, err, http.StatusCreated, "Trainer created successfully")
}

func (a *API) updateTrainer(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var u models.TrainerUpdate
	if err := decode(r, &u); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownTrainer(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Trainers.Update(r.Context(), p["id"], u)
	one(w, r, res, err, http.StatusOK, "Trainer updated successfully")
}

func (a *API) deleteTrainer(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownTrainer(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Trainers.Delete(r.Context(), p["id"])
	gone(w, r, res, err, "Trainer deleted successfully")
}

func (a *API) trainerAvailability(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.Trainers.Availability(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) updateTrainerAvailability(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var av models.Availability
	if err := decode(r, &av); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownTrainer(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Trainers.UpdateAvailability(r.Context(), p["id"], av)
	one(w, r, res, err, http.StatusOK, "Trainer availability updated successfully")
}

func (a *API) updateTrainerCertifications(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var u models.CertificationsUpdate
	if err := decode(r, &u); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownTrainer(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Trainers.UpdateCertifications(r.Context(), p["id"], u)
	one(w, r, res, err, http.StatusOK, "Trainer certifications updated successfully")
}

func (a *API) trainerCourseHistory(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.Trainers.CourseHistory(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

func (a *API) rateTrainer(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req ratingRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Trainers.Rate(r.Context(), p["id"], req.Rating)
	one(w, r, res, err, http.StatusOK, "Rating recorded successfully")
}
