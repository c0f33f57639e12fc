package server

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"seconds": func(j *Job) string { return j.Elapsed().Round(10 * time.Millisecond).String() },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>varqopt jobs</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { padding: 4px 10px; border-bottom: 1px solid #ddd; text-align: left; }
.failed { color: #b00; }
.completed { color: #070; }
</style>
</head>
<body>
<h1>Jobs</h1>
{{if .}}
<table>
<tr><th>ID</th><th>Solver</th><th>Input</th><th>State</th><th>Evaluations</th><th>Best cost</th><th>Elapsed</th></tr>
{{range .}}
<tr>
<td><a href="/api/v1/jobs/{{.ID}}">{{.ID}}</a></td>
<td>{{.Spec.Solver}}</td>
<td>{{.Spec.Input}}</td>
<td class="{{.State}}">{{.State}}{{if .Error}}: {{.Error}}{{end}}</td>
<td>{{.Evaluations}}</td>
<td>{{printf "%.6g" .BestCost}}</td>
<td>{{seconds .}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No jobs yet. POST a job spec to <code>/api/v1/jobs</code>.</p>
{{end}}
</body>
</html>
`))

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.jobManager.ListJobs()); err != nil {
		slog.Error("Failed to render index", "error", err)
	}
}
