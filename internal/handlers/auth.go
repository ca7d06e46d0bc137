package handlers

import (
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/mbda/trafficboard/internal/api"
	"github.com/mbda/trafficboard/internal/middleware"
)

const defaultLanding = "/dashboard"

var pinPageTmpl = template.Must(template.New("pin").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Traffic Board Access</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; background: #f4f4f5; }
form { background: #fff; padding: 2rem; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,.1); width: 280px; }
h1 { font-size: 1.1rem; margin: 0 0 1rem; }
input[type=password] { width: 100%; padding: .5rem; font-size: 1.2rem; letter-spacing: .3em; box-sizing: border-box; }
button { width: 100%; margin-top: 1rem; padding: .5rem; font-size: 1rem; }
.error { color: #b91c1c; font-size: .85rem; margin-top: .5rem; }
</style>
</head>
<body>
<form method="post" action="/auth/pin">
<h1>Enter access PIN</h1>
<input type="password" name="pin" inputmode="numeric" autocomplete="off" autofocus>
<input type="hidden" name="redirect" value="{{.Redirect}}">
<button type="submit">Unlock</button>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
</form>
</body>
</html>
`))

type pinPageData struct {
	Redirect string
	Error    string
}

// pinSubmission is the JSON body accepted by POST /auth/pin
type pinSubmission struct {
	PIN      string `json:"pin" validate:"required"`
	Redirect string `json:"redirect"`
}

// AuthHandler serves the PIN page and access-cookie endpoints
type AuthHandler struct {
	gate *middleware.PinAuthMiddleware
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(gate *middleware.PinAuthMiddleware) *AuthHandler {
	return &AuthHandler{gate: gate}
}

// SetupRoutes sets up auth routes
func (h *AuthHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /pin", h.handlePinPage)
	mux.HandleFunc("POST /auth/pin", h.handlePinSubmit)
	mux.HandleFunc("GET /auth/verify", h.handleVerify)
}

// handlePinPage handles GET /pin
func (h *AuthHandler) handlePinPage(w http.ResponseWriter, r *http.Request) {
	h.renderPinPage(w, http.StatusOK, pinPageData{
		Redirect: safeRedirect(r.URL.Query().Get("redirect")),
	})
}

// handlePinSubmit handles POST /auth/pin. It accepts either a JSON body
// (the dashboard's fetch call) or the PIN page's form post, and answers
// in kind.
func (h *AuthHandler) handlePinSubmit(w http.ResponseWriter, r *http.Request) {
	var sub pinSubmission
	isForm := !strings.Contains(r.Header.Get("Content-Type"), "application/json")

	if isForm {
		if err := r.ParseForm(); err != nil {
			api.RespondError(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		sub.PIN = r.PostFormValue("pin")
		sub.Redirect = r.PostFormValue("redirect")
	} else {
		if err := api.DecodeJSON(r, &sub); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errs := api.Validate(sub); errs != nil {
			api.RespondValidationError(w, errs)
			return
		}
	}

	redirect := safeRedirect(sub.Redirect)

	if !h.gate.VerifyPIN(sub.PIN) {
		log.Printf("AuthHandler: wrong PIN from %s", r.RemoteAddr)
		if isForm {
			h.renderPinPage(w, http.StatusUnauthorized, pinPageData{
				Redirect: redirect,
				Error:    "Wrong PIN, try again",
			})
			return
		}
		api.RespondError(w, http.StatusUnauthorized, "Wrong PIN")
		return
	}

	token, err := h.gate.GenerateToken()
	if err != nil {
		log.Printf("AuthHandler: failed to sign access token: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to grant access")
		return
	}

	http.SetCookie(w, h.gate.AccessCookie(token))

	if isForm {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"redirect": redirect,
	})
}

// handleVerify handles GET /auth/verify
func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	valid := false
	if cookie, err := r.Cookie(middleware.AccessCookieName); err == nil {
		if _, err := h.gate.ValidateToken(cookie.Value); err == nil {
			valid = true
		}
	}
	api.RespondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *AuthHandler) renderPinPage(w http.ResponseWriter, status int, data pinPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pinPageTmpl.Execute(w, data); err != nil {
		log.Printf("AuthHandler: failed to render PIN page: %v", err)
	}
}

// safeRedirect keeps post-login redirects on this origin. Anything that is
// not a local absolute path falls back to the dashboard.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return defaultLanding
	}
	return target
}
