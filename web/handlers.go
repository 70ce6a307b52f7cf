package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bizdash/api"
	"bizdash/auth"
)

// flash is the shared error/notice banner state every page carries.
type flash struct {
	Title  string
	Error  string
	Notice string
}

func (a *App) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.Logger.Error("render failed", "template", tmpl.Name(), "error", err)
	}
}

// displayError maps an auth failure to the message the operator sees. The
// backend's own message is preferred when it sent one.
func displayError(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		return "Too many login attempts. Try again in a few minutes."
	case errors.Is(err, auth.ErrInvalidToken):
		return "The server returned an invalid session token. Please try again."
	case errors.Is(err, auth.ErrNoRefreshToken):
		return "Your session has ended. Please sign in again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "The request could not be completed. Please try again."
	}
}

type loginView struct {
	flash
	Email     string
	Providers []string
}

func (a *App) loginProviders() []string {
	names := make([]string, 0, len(a.Flows))
	for name := range a.Flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if a.Manager.State() == auth.StateAuthenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	view := loginView{flash: flash{Title: "Sign in"}, Providers: a.loginProviders()}
	if r.URL.Query().Get("out") != "" {
		view.Notice = "You have been signed out."
	}
	a.render(w, loginTemplate, view)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")

	_, err := a.Manager.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		a.render(w, loginTemplate, loginView{
			flash:     flash{Title: "Sign in", Error: displayError(err)},
			Email:     email,
			Providers: a.loginProviders(),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type registerView struct {
	flash
	Name    string
	Company string
	Email   string
}

func (a *App) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, registerTemplate, registerView{flash: flash{Title: "Create account"}})
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	params := api.RegisterParams{
		Name:     r.PostFormValue("name"),
		Company:  r.PostFormValue("company"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	if _, err := a.Manager.Register(r.Context(), params); err != nil {
		a.render(w, registerTemplate, registerView{
			flash:   flash{Title: "Create account", Error: displayError(err)},
			Name:    params.Name,
			Company: params.Company,
			Email:   params.Email,
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.Manager.Logout()
	http.Redirect(w, r, "/login?out=1", http.StatusSeeOther)
}

func (a *App) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	flow, ok := a.Flows[provider]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, flow.AuthCodeURL(a.newOAuthState()), http.StatusFound)
}

func (a *App) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	flow, ok := a.Flows[provider]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}
	if !a.consumeOAuthState(r.URL.Query().Get("state")) {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	payload, err := flow.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.Logger.Warn("oauth exchange failed", "provider", provider, "error", err)
		a.render(w, loginTemplate, loginView{
			flash:     flash{Title: "Sign in", Error: "Sign-in with " + provider + " failed."},
			Providers: a.loginProviders(),
		})
		return
	}

	if _, err := a.Manager.LoginWithOAuth(r.Context(), provider, payload); err != nil {
		a.render(w, loginTemplate, loginView{
			flash:     flash{Title: "Sign in", Error: displayError(err)},
			Providers: a.loginProviders(),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleForgotPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, forgotTemplate, flash{Title: "Reset password"})
}

func (a *App) handleForgot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	view := flash{Title: "Reset password"}
	if err := a.Manager.RequestPasswordReset(r.Context(), r.PostFormValue("email")); err != nil {
		view.Error = displayError(err)
	} else {
		view.Notice = "If that address exists, a reset link is on its way."
	}
	a.render(w, forgotTemplate, view)
}

type resetView struct {
	flash
	Token string
}

func (a *App) handleResetPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, resetTemplate, resetView{
		flash: flash{Title: "Choose a new password"},
		Token: r.URL.Query().Get("token"),
	})
}

func (a *App) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	token := r.PostFormValue("token")
	if err := a.Manager.ResetPassword(r.Context(), token, r.PostFormValue("password")); err != nil {
		a.render(w, resetTemplate, resetView{
			flash: flash{Title: "Choose a new password", Error: displayError(err)},
			Token: token,
		})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type dashboardView struct {
	flash
	Window string
	Stats  *api.Stats
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	window := r.URL.Query().Get("range")
	if window == "" {
		window = "30d"
	}

	view := dashboardView{flash: flash{Title: "Dashboard"}, Window: window, Stats: &api.Stats{}}
	stats, err := a.API.GetStats(r.Context(), a.Manager.Current().Token, window)
	if err != nil {
		view.Error = displayError(err)
	} else {
		view.Stats = stats
	}
	a.render(w, dashboardTemplate, view)
}

type salesView struct {
	flash
	Query    api.SalesQuery
	Page     *api.SalesPage
	PrevPage string
	NextPage string
}

func (a *App) handleSales(w http.ResponseWriter, r *http.Request) {
	q := api.SalesQuery{
		Page:     intParam(r, "page", 1),
		PageSize: intParam(r, "pageSize", 20),
		Sort:     r.URL.Query().Get("sort"),
		Status:   r.URL.Query().Get("status"),
		Search:   r.URL.Query().Get("search"),
	}
	if q.Sort == "" {
		q.Sort = "-createdAt"
	}

	view := salesView{flash: flash{Title: "Sales"}, Query: q, Page: &api.SalesPage{Page: q.Page}}
	if r.URL.Query().Get("added") != "" {
		view.Notice = "Sale recorded."
	}

	page, err := a.API.ListSales(r.Context(), a.Manager.Current().Token, q)
	if err != nil {
		view.Error = displayError(err)
	} else {
		view.Page = page
		if page.Page > 1 {
			view.PrevPage = salesURL(q, page.Page-1)
		}
		if page.Page < page.TotalPages {
			view.NextPage = salesURL(q, page.Page+1)
		}
	}
	a.render(w, salesTemplate, view)
}

func (a *App) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	amount, err := strconv.ParseFloat(r.PostFormValue("amount"), 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	sale := api.Sale{
		CustomerID: r.PostFormValue("customerId"),
		Product:    r.PostFormValue("product"),
		Amount:     amount,
		Status:     "pending",
	}
	if _, err := a.API.CreateSale(r.Context(), a.Manager.Current().Token, sale); err != nil {
		a.render(w, salesTemplate, salesView{
			flash: flash{Title: "Sales", Error: displayError(err)},
			Page:  &api.SalesPage{Page: 1},
		})
		return
	}
	http.Redirect(w, r, "/sales?added=1", http.StatusSeeOther)
}

type customersView struct {
	flash
	Query    api.CustomerQuery
	Page     *api.CustomerPage
	PrevPage string
	NextPage string
}

func (a *App) handleCustomers(w http.ResponseWriter, r *http.Request) {
	q := api.CustomerQuery{
		Page:     intParam(r, "page", 1),
		PageSize: intParam(r, "pageSize", 20),
		Sort:     r.URL.Query().Get("sort"),
		Search:   r.URL.Query().Get("search"),
	}

	view := customersView{flash: flash{Title: "Customers"}, Query: q, Page: &api.CustomerPage{Page: q.Page}}
	page, err := a.API.ListCustomers(r.Context(), a.Manager.Current().Token, q)
	if err != nil {
		view.Error = displayError(err)
	} else {
		view.Page = page
		if page.Page > 1 {
			view.PrevPage = customersURL(q, page.Page-1)
		}
		if page.Page*page.PageSize < page.Total {
			view.NextPage = customersURL(q, page.Page+1)
		}
	}
	a.render(w, customersTemplate, view)
}

type customerView struct {
	flash
	Customer *api.Customer
}

func (a *App) handleCustomer(w http.ResponseWriter, r *http.Request) {
	cust, err := a.API.GetCustomer(r.Context(), a.Manager.Current().Token, chi.URLParam(r, "id"))
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		http.Error(w, displayError(err), http.StatusBadGateway)
		return
	}
	a.render(w, customerTemplate, customerView{flash: flash{Title: cust.Name}, Customer: cust})
}

type securityView struct {
	flash
	Entries []auth.Entry
}

func (a *App) handleSecurityLog(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if user := a.Manager.Current().User; user != nil {
		userID = user.ID
	}
	a.render(w, securityTemplate, securityView{
		flash:   flash{Title: "Security log"},
		Entries: a.Log.QueryForUser(userID),
	})
}

type settingsView struct {
	flash
	User *api.Identity
}

func (a *App) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	view := settingsView{flash: flash{Title: "Settings"}, User: a.Manager.Current().User}
	if r.URL.Query().Get("changed") != "" {
		view.Notice = "Password changed."
	}
	a.render(w, settingsTemplate, view)
}

func (a *App) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	err := a.Manager.ChangePassword(r.Context(), r.PostFormValue("current"), r.PostFormValue("new"))
	if err != nil {
		a.render(w, settingsTemplate, settingsView{
			flash: flash{Title: "Settings", Error: displayError(err)},
			User:  a.Manager.Current().User,
		})
		return
	}
	http.Redirect(w, r, "/settings?changed=1", http.StatusSeeOther)
}

func intParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func salesURL(q api.SalesQuery, page int) string {
	vals := url.Values{}
	vals.Set("page", strconv.Itoa(page))
	if q.PageSize != 20 {
		vals.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Sort != "" {
		vals.Set("sort", q.Sort)
	}
	if q.Status != "" {
		vals.Set("status", q.Status)
	}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	return fmt.Sprintf("/sales?%s", vals.Encode())
}

func customersURL(q api.CustomerQuery, page int) string {
	vals := url.Values{}
	vals.Set("page", strconv.Itoa(page))
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	if q.Sort != "" {
		vals.Set("sort", q.Sort)
	}
	return fmt.Sprintf("/customers?%s", vals.Encode())
}
