package server

import (
	"html/template"
	"net/http"
)

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>{{.AppName}}</title></head>
<body>
{{if .Email}}
<pre>Email: {{.Email}}</pre><br>
<a href="/protected">report</a><br>
<a href="/docs">documentation</a><br>
<a href="/logout">logout</a>
{{else}}
<a href="/login">login</a>
{{end}}
</body>
</html>
`

// IndexHandler renders the home page: the authenticated email with links, or
// a login link for anonymous visitors.
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := template.Must(template.New("index").Parse(indexTemplate))

	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			AppName string
			Email   string
		}{AppName: s.config.AppName}

		if session, ok := s.sessionFromRequest(r); ok && session.Authenticated() {
			data.Email = session.Identity.Email
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}
