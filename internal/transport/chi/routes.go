package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// SearchParams are the bound query parameters of GET /v1/search.
type SearchParams struct {
	Q         string    `form:"q" json:"q"`
	Allergens *[]string `form:"allergens,omitempty" json:"allergens,omitempty"`
	Context   *string   `form:"context,omitempty" json:"context,omitempty"`
	Target    *int      `form:"target,omitempty" json:"target,omitempty"`

	XAnonID *string `json:"X-Anon-Id,omitempty"`
}

// ServerInterface is the set of HTTP operations served by the API.
type ServerInterface interface {
	// GET /v1/search
	SearchRecipes(w http.ResponseWriter, r *http.Request, params SearchParams)
	// POST /v1/search
	SearchRecipesJSON(w http.ResponseWriter, r *http.Request)
	// POST /v1/feedback
	SubmitFeedback(w http.ResponseWriter, r *http.Request)
	// POST /v1/reports/allergen-mismatch
	ReportAllergenMismatch(w http.ResponseWriter, r *http.Request)
	// GET /v1/admin/policies
	ListPolicies(w http.ResponseWriter, r *http.Request)
	// PUT /v1/admin/policies/{domain}
	UpsertPolicy(w http.ResponseWriter, r *http.Request, domain string)
	// DELETE /v1/admin/policies/{domain}
	DeletePolicy(w http.ResponseWriter, r *http.Request, domain string)
	// GET /v1/admin/policies/{domain}/stats
	GetPolicyStats(w http.ResponseWriter, r *http.Request, domain string)
	// POST /v1/admin/rerank/lambda
	AdjustLambda(w http.ResponseWriter, r *http.Request)
	// POST /v1/admin/medians
	CalibrateMedians(w http.ResponseWriter, r *http.Request)
	// GET /health
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configure HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []func(http.Handler) http.Handler
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si on a new chi router.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions mounts si on options.BaseRouter (a new router if nil).
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		}
	}
	wrapper := serverInterfaceWrapper{
		handler:          si,
		middlewares:      options.Middlewares,
		errorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/v1/search", wrapper.SearchRecipes)
		r.Post(options.BaseURL+"/v1/search", wrapper.plain(si.SearchRecipesJSON))
		r.Post(options.BaseURL+"/v1/feedback", wrapper.plain(si.SubmitFeedback))
		r.Post(options.BaseURL+"/v1/reports/allergen-mismatch", wrapper.plain(si.ReportAllergenMismatch))
		r.Get(options.BaseURL+"/v1/admin/policies", wrapper.plain(si.ListPolicies))
		r.Put(options.BaseURL+"/v1/admin/policies/{domain}", wrapper.withDomain(si.UpsertPolicy))
		r.Delete(options.BaseURL+"/v1/admin/policies/{domain}", wrapper.withDomain(si.DeletePolicy))
		r.Get(options.BaseURL+"/v1/admin/policies/{domain}/stats", wrapper.withDomain(si.GetPolicyStats))
		r.Post(options.BaseURL+"/v1/admin/rerank/lambda", wrapper.plain(si.AdjustLambda))
		r.Post(options.BaseURL+"/v1/admin/medians", wrapper.plain(si.CalibrateMedians))
		r.Get(options.BaseURL+"/health", wrapper.plain(si.HealthCheck))
		r.Get(options.BaseURL+"/metrics", wrapper.plain(si.Metrics))
	})
	return r
}

type serverInterfaceWrapper struct {
	handler          ServerInterface
	middlewares      []func(http.Handler) http.Handler
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, mw := range siw.middlewares {
		h = mw(h)
	}
	h.ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) plain(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siw.serve(w, r, fn)
	}
}

func (siw *serverInterfaceWrapper) withDomain(
	fn func(w http.ResponseWriter, r *http.Request, domain string),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var domain string
		err := runtime.BindStyledParameterWithLocation(
			"simple", false, "domain", runtime.ParamLocationPath, chi.URLParam(r, "domain"), &domain,
		)
		if err != nil {
			siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "domain", Err: err})
			return
		}
		siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, domain)
		}))
	}
}

// SearchRecipes binds the query and header parameters of GET /v1/search.
func (siw *serverInterfaceWrapper) SearchRecipes(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "q", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "allergens", query, &params.Allergens); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "allergens", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "context", query, &params.Context); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "context", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "target", query, &params.Target); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "target", Err: err})
		return
	}

	if values := r.Header.Values("X-Anon-Id"); len(values) == 1 {
		var anonID string
		err := runtime.BindStyledParameterWithLocation(
			"simple", false, "X-Anon-Id", runtime.ParamLocationHeader, values[0], &anonID,
		)
		if err != nil {
			siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "X-Anon-Id", Err: err})
			return
		}
		params.XAnonID = &anonID
	}

	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.SearchRecipes(w, r, params)
	}))
}
