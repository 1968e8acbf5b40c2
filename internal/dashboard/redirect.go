package dashboard

import (
	"net/url"
	"strings"

	"github.com/sakif/livt/internal/model"
)

// LoginURL returns the login page path carrying next.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// AfterSignUp is where a new account lands: creators go straight to the
// upload form, everyone else to the home page.
func AfterSignUp(role model.Role) string {
	if role == model.RoleCreator {
		return UploadPath
	}
	return HomePath
}

// AfterSignIn honours next when it is a safe same-site path, and otherwise
// sends creators to their dashboard and everyone else home.
func AfterSignIn(role model.Role, next string) string {
	if safe, ok := SafeNext(next); ok {
		return safe
	}
	if role == model.RoleCreator {
		return DashboardPath
	}
	return HomePath
}

// SafeNext validates a post-login destination. Only paths on this site are
// accepted; anything with a scheme or host (including "//host" and
// backslash tricks browsers normalise to "//") is refused. Relative paths
// such as "creatordashboard.html?uid=x" are anchored at the site root.
func SafeNext(next string) (string, bool) {
	next = strings.TrimSpace(next)
	if next == "" || strings.ContainsAny(next, "\\\r\n") {
		return "", false
	}
	if strings.HasPrefix(next, "//") {
		return "", false
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}

	if !strings.HasPrefix(next, "/") {
		next = "/" + next
	}
	return next, true
}
