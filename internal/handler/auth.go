package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/dashboard"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/service"
)

const (
	modeSignUp = "signup"
	modeSignIn = "signin"

	oauthStateCookie = "livt_oauth_state"
	oauthNextCookie  = "livt_oauth_next"
	oauthCookieTTL   = 10 * time.Minute
)

// AuthHandler serves the login page and every sign-in, sign-up and
// sign-out action.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginPage       → GET  /login.html
//   - HandleSignUp          → POST /auth/signup
//   - HandleSignIn          → POST /auth/signin
//   - HandleLogout          → POST /auth/logout
//   - HandleGitHubLogin     → GET  /auth/github/login
//   - HandleGitHubCallback  → GET  /auth/github/callback
//
// github is nil when GitHub sign-in is not configured; the GitHub routes
// are then not registered and the button is hidden.
type AuthHandler struct {
	auth     *service.AuthService
	github   *auth.GitHubProvider
	renderer *Renderer
	ttl      time.Duration
	secure   bool
	logger   *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	renderer *Renderer,
	sessionTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		github:   github,
		renderer: renderer,
		ttl:      sessionTTL,
		secure:   secureCookies,
		logger:   logger,
	}
}

// loginView is the data behind login.html.
type loginView struct {
	layout
	Mode        string
	Next        string
	Status      string
	Email       string
	DisplayName string
	Role        string
	SignInURL   string
	SignUpURL   string
	GitHubURL   string
}

func (h *AuthHandler) loginView(viewer *model.User, mode, next string) loginView {
	if mode != modeSignUp {
		mode = modeSignIn
	}
	v := loginView{
		layout:    newLayout("Sign in", viewer),
		Mode:      mode,
		Next:      next,
		Role:      string(model.RoleCreator),
		SignInURL: loginModeURL(modeSignIn, next),
		SignUpURL: loginModeURL(modeSignUp, next),
	}
	if h.github != nil {
		v.GitHubURL = "/auth/github/login"
		if next != "" {
			v.GitHubURL += "?next=" + url.QueryEscape(next)
		}
	}
	return v
}

func loginModeURL(mode, next string) string {
	q := url.Values{"mode": {mode}}
	if next != "" {
		q.Set("next", next)
	}
	return dashboard.LoginPath + "?" + q.Encode()
}

// HandleLoginPage renders the create-account and sign-in forms.
//
// HTTP: GET /login.html?mode=signup|signin&next=<path>
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	viewer, err := currentViewer(r, h.auth)
	if err != nil {
		logFailure(h.logger, r, "login page: loading viewer", err)
	}
	q := r.URL.Query()
	h.renderer.Render(w, http.StatusOK, pageLogin, h.loginView(viewer, q.Get("mode"), q.Get("next")))
}

// HandleSignUp creates an account and signs it in.
//
// HTTP: POST /auth/signup (form: email, password, displayName, role)
//
// Creators land on the upload form, users on the home page. Any error
// re-renders the form with "Error: <message>" and no redirect.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, modeSignUp, apperror.ValidationFailed("form", "invalid form submission"))
		return
	}

	result, err := h.auth.SignUp(r.Context(), service.SignUpInput{
		Email:       r.PostFormValue("email"),
		Password:    r.PostFormValue("password"),
		DisplayName: r.PostFormValue("displayName"),
		Role:        model.Role(r.PostFormValue("role")),
	})
	if err != nil {
		h.renderLoginError(w, r, modeSignUp, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.ttl, h.secure)
	http.Redirect(w, r, dashboard.AfterSignUp(result.User.Role), http.StatusSeeOther)
}

// HandleSignIn authenticates and redirects to next, or by role.
//
// HTTP: POST /auth/signin (form: email, password, next)
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, modeSignIn, apperror.ValidationFailed("form", "invalid form submission"))
		return
	}

	result, err := h.auth.SignIn(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.renderLoginError(w, r, modeSignIn, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.ttl, h.secure)
	http.Redirect(w, r, dashboard.AfterSignIn(result.User.Role, r.PostFormValue("next")), http.StatusSeeOther)
}

// renderLoginError shows the login page again with the error in
// #auth-status, keeping what the user typed (never the password).
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, mode string, err error) {
	logFailure(h.logger, r, "authentication failed", err)

	v := h.loginView(nil, mode, r.PostFormValue("next"))
	v.Status = "Error: " + messageFor(err)
	v.Email = strings.TrimSpace(r.PostFormValue("email"))
	v.DisplayName = strings.TrimSpace(r.PostFormValue("displayName"))
	if role := r.PostFormValue("role"); role != "" {
		v.Role = role
	}

	status, _ := errorStatus(err)
	h.renderer.Render(w, status, pageLogin, v)
}

// HandleLogout clears the session cookie and goes home.
//
// HTTP: POST /auth/logout
//
// The JWT stays valid until it expires; without the cookie the browser
// simply stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secure)
	http.Redirect(w, r, dashboard.HomePath, http.StatusSeeOther)
}

// HandleGitHubLogin redirects to GitHub's consent page.
//
// HTTP: GET /auth/github/login?next=<path>
//
// The random state goes into a short-lived HttpOnly cookie and is checked
// on the callback (CSRF protection). next survives the round trip the same
// way.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	h.setShortCookie(w, oauthStateCookie, state)
	if next, ok := dashboard.SafeNext(r.URL.Query().Get("next")); ok {
		h.setShortCookie(w, oauthNextCookie, next)
	}
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow:
//
//  1. check the state against the cookie
//  2. exchange the code for the GitHub profile
//  3. resolve it to a livt profile (sign in, link or create)
//  4. set the session cookie and redirect like a normal sign-in
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.renderLoginError(w, r, modeSignIn, apperror.ValidationFailed("state", "GitHub sign-in expired, please try again"))
		return
	}
	h.clearCookie(w, oauthStateCookie)

	var next string
	if c, err := r.Cookie(oauthNextCookie); err == nil {
		next = c.Value
		h.clearCookie(w, oauthNextCookie)
	}

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, dashboard.HomePath+"?auth=denied", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.renderLoginError(w, r, modeSignIn, apperror.ValidationFailed("code", "GitHub did not return an authorization code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		h.renderLoginError(w, r, modeSignIn, apperror.Unauthorized("GitHub sign-in failed"))
		return
	}

	result, err := h.auth.SignInGitHub(r.Context(), ghUser)
	if err != nil {
		h.renderLoginError(w, r, modeSignIn, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.ttl, h.secure)
	http.Redirect(w, r, dashboard.AfterSignIn(result.User.Role, next), http.StatusSeeOther)
}

func (h *AuthHandler) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/github",
		MaxAge:   int(oauthCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/auth/github",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
