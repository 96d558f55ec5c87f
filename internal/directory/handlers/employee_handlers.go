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

func (a *API) employeeRoutes(mux *runtime.ServeMux) {
	base := apiBase + "/employees"
	a.route(mux, http.MethodGet, base, supervisors, a.listEmployees)
	a.route(mux, http.MethodPost, base, managers, a.createEmployee)
	a.route(mux, http.MethodGet, base+"/{id}", everyone, a.getEmployee)
	a.route(mux, http.MethodPut, base+"/{id}", managers, a.updateEmployee)
	a.route(mux, http.MethodDelete, base+"/{id}", adminOnly, a.deleteEmployee)
	a.route(mux, http.MethodPost, base+"/{id}/enrich", managers, a.enrichEmployee)
	a.route(mux, http.MethodPatch, base+"/{id}/skills", managers, a.updateEmployeeSkills)
	a.route(mux, http.MethodGet, base+"/{id}/skill-gap", everyone, a.employeeSkillGap)
	a.route(mux, http.MethodGet, base+"/{id}/relevance", everyone, a.employeeRelevance)
	a.route(mux, http.MethodGet, base+"/{id}/skills/competences", everyone, a.employeeCompetences)
}

func employeeCompany(emp *models.Employee) string {
	if emp == nil {
		return ""
	}
	return emp.CompanyID
}

// ownEmployee guards routes addressing one employee.
func (a *API) ownEmployee(ctx context.Context, id string) (fallback.Source, error) {
	return owned(ctx, a.svc.Employees.Get, id, employeeCompany)
}

func (a *API) listEmployees(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	f := models.EmployeeFilter{
		Search:       q.Get("search"),
		CompanyID:    q.Get("companyId"),
		DepartmentID: q.Get("departmentId"),
		TeamID:       q.Get("teamId"),
		Role:         q.Get("role"),
		Level:        q.Get("level"),
		Status:       q.Get("status"),
		Page:         page(r),
	}
	if err := scopeFilter(r.Context(), &f.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Employees.List(r.Context(), f)
	many(w, r, res, err)
}

func (a *API) getEmployee(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.Employees.Get(r.Context(), p["id"])
	if err == nil {
		err = auth.CheckScope(r.Context(), res.Value.CompanyID)
	}
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.EmployeeInput
	if err := decode(r, &in); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if err := auth.CheckScope(r.Context(), in.CompanyID); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Employees.Create(r.Context(), in)
	one(w, r, res, err, http.StatusCreated, "Employee created successfully")
}

func (a *API) updateEmployee(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var u models.EmployeeUpdate
	if err := decode(r, &u); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.Update(r.Context(), p["id"], u)
	one(w, r, res, err, http.StatusOK, "Employee updated successfully")
}

func (a *API) deleteEmployee(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.Delete(r.Context(), p["id"])
	gone(w, r, res, err, "Employee deleted successfully")
}

type enrichRequest struct {
	Sources []string `json:"sources"`
}

func (a *API) enrichEmployee(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req enrichRequest
	if err := decodeOptional(r, &req); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.Enrich(r.Context(), p["id"], req.Sources)
	one(w, r, res, err, http.StatusOK, "Employee profile enriched successfully")
}

func (a *API) updateEmployeeSkills(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var u models.SkillsUpdate
	if err := decode(r, &u); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.UpdateSkills(r.Context(), p["id"], u)
	one(w, r, res, err, http.StatusOK, "Employee skills updated successfully")
}

func (a *API) employeeSkillGap(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.SkillGap(r.Context(), p["id"], r.URL.Query().Get("careerGoal"))
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) employeeRelevance(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.Relevance(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) employeeCompetences(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if src, err := a.ownEmployee(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, src)
		return
	}
	res, err := a.svc.Employees.Competences(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}
