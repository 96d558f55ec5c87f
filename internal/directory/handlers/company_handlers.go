package handlers

import (
	"net/http"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/response"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

func (a *API) companyRoutes(mux *runtime.ServeMux) {
	base := apiBase + "/companies"
	a.route(mux, http.MethodGet, base, managers, a.listCompanies)
	a.route(mux, http.MethodPost, base, adminOnly, a.createCompany)
	a.route(mux, http.MethodGet, base+"/{id}", everyone, a.getCompany)
	a.route(mux, http.MethodPut, base+"/{id}", adminOnly, a.updateCompany)
	a.route(mux, http.MethodDelete, base+"/{id}", adminOnly, a.deleteCompany)
	a.route(mux, http.MethodGet, base+"/{id}/hierarchy", everyone, a.companyHierarchy)
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	res, err := a.svc.Companies.List(r.Context(), models.CompanyFilter{
		Search:   q.Get("search"),
		Industry: q.Get("industry"),
		Size:     q.Get("size"),
		Status:   q.Get("status"),
		Page:     page(r),
	})
	many(w, r, res, err)
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if err := auth.CheckScope(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Companies.Get(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.CompanyInput
	if err := decode(r, &in); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Companies.Create(r.Context(), in)
	one(w, r, res, err, http.StatusCreated, "Company created successfully")
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var u models.CompanyUpdate
	if err := decode(r, &u); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Companies.Update(r.Context(), p["id"], u)
	one(w, r, res, err, http.StatusOK, "Company updated successfully")
}

func (a *API) deleteCompany(w http.ResponseWriter, r *http.Request, p map[string]string) {
	res, err := a.svc.Companies.Delete(r.Context(), p["id"])
	gone(w, r, res, err, "Company deleted successfully")
}

func (a *API) companyHierarchy(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if err := auth.CheckScope(r.Context(), p["id"]); err != nil {
		response.Fail(w, r, err, "")
		return
	}
	res, err := a.svc.Companies.Hierarchy(r.Context(), p["id"])
	one(w, r, res, err, http.StatusOK, "")
}
