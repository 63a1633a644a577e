// Command okusno runs a content site server. Site settings come from an
// optional YAML config file; secrets come from the environment.
package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/a-h/templ"

	"github.com/ambrozic/okusno"
)

func main() {
	cfg, err := okusno.LoadConfig(okusno.EnvOr("OKUSNO_CONFIG", "okusno.yaml"))
	if err != nil {
		log.Fatal(err)
	}
	cfg.AdminPassword = okusno.MustEnv("ADMIN_PASSWORD")
	cfg.SessionSecret = okusno.MustEnv("SESSION_SECRET")

	app := okusno.New(cfg, views())
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// views supplies minimal admin and error pages. Sites that want a styled
// admin replace these with their own templ components.
func views() okusno.ViewFuncs {
	page := func(body string) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, "<!DOCTYPE html><html><body>"+body+"</body></html>")
			return err
		})
	}
	return okusno.ViewFuncs{
		AdminLogin: func(showError bool, csrfToken string) templ.Component {
			msg := ""
			if showError {
				msg = "<p>Wrong password.</p>"
			}
			return page(fmt.Sprintf(`%s<form method="post" action="/admin/login/">
<input type="hidden" name="_csrf" value="%s">
<input type="password" name="password" autofocus>
<button type="submit">Log in</button></form>`, msg, csrfToken))
		},
		AdminDashboard: func(entityTypes []string, csrfToken string) templ.Component {
			body := "<h1>Admin</h1><ul>"
			for _, t := range entityTypes {
				body += fmt.Sprintf(`<li><a href="/api/%s">%s</a></li>`, t, t)
			}
			body += "</ul>"
			return page(body)
		},
		NotFound:    func() templ.Component { return page("<h1>Not found</h1>") },
		ServerError: func() templ.Component { return page("<h1>Something went wrong</h1>") },
	}
}
