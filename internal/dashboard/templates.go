package dashboard

import (
	"fmt"
	"html/template"
)

var funcs = template.FuncMap{
	"signed": func(n int) string { return fmt.Sprintf("%+d", n) },
	"level": func(l int) string {
		switch l {
		case 2:
			return "warn"
		case 1:
			return "error"
		default:
			return "ok"
		}
	},
}

const layout = `{{define "head"}}<!doctype html>
<html lang="en"><head><meta charset="utf-8">
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<title>{{.Title}} - CardioWatch</title>
<style>
body{font-family:sans-serif;margin:2em;color:#222}
.cols{display:flex;gap:2em;flex-wrap:wrap}
.banner{padding:.6em 1em;border-radius:4px}
.ok{background:#e6f4ea}.warn{background:#fff4e5}.error{background:#fdecea}
table{border-collapse:collapse}td,th{padding:.2em .8em;border-bottom:1px solid #ddd}
.anomaly{color:#c00;font-weight:bold}
.metric{font-size:2.4em}
nav a{margin-right:1em}
</style></head><body>
<nav><a href="/">Dashboard</a><a href="/profile">Profile</a><a href="/api/report.pdf">Report (PDF)</a><a href="/api/export.parquet">Export (Parquet)</a></nav>
{{end}}`

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(funcs).Parse(layout + `{{template "head" .}}
<h1>Heart-rate monitoring</h1>
{{with .Analysis}}
{{if not .Ready}}
<p class="banner warn">Waiting for data collection... ({{len .Rows}} of {{$.MinSamples}} readings needed for analysis)</p>
{{else}}
<div class="cols">
<div>
<h2>Patient: {{.Profile.Text "name"}}</h2>
<p><b>Age:</b> {{.Profile.Text "age"}}</p>
<p><b>Conditions:</b> {{.Profile.Text "conditions"}}</p>
<p>Current BPM</p>
<p class="metric">{{.Latest.BPM}} <small>{{signed .Delta}} BPM</small></p>
<h3>Patient status</h3>
<p class="banner {{level .Status.Level}}">{{.Status.Message}}</p>
<h3>Summary</h3>
<p>{{.Summary.Count}} readings, mean {{printf "%.1f" .Summary.Mean}}, p50 {{printf "%.0f" .Summary.P50}}, p95 {{printf "%.0f" .Summary.P95}}, {{.Summary.Anomalies}} anomalies</p>
</div>
<div>
<h2>Recent history (anomalies in red)</h2>
{{with $.Chart}}
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" role="img">
<text x="2" y="34" font-size="10">{{.MaxLabel}}</text>
<text x="2" y="{{.Height}}" font-size="10" dy="-26">{{.MinLabel}}</text>
<polyline fill="none" stroke="blue" stroke-width="1.5" points="{{.Line}}"/>
{{range .Points}}<circle cx="{{printf "%.1f" .X}}" cy="{{printf "%.1f" .Y}}" r="{{if .Anomaly}}4{{else}}2.5{{end}}" fill="{{if .Anomaly}}red{{else}}blue{{end}}"><title>{{.Label}}: {{.BPM}} BPM</title></circle>{{end}}
</svg>
{{end}}
</div>
</div>
{{end}}
<h2>Raw readings</h2>
<table><tr><th>Time</th><th>BPM</th><th>Model</th></tr>
{{range $.Recent}}<tr{{if .Anomaly}} class="anomaly"{{end}}><td>{{.Time.Format "15:04:05"}}</td><td>{{.BPM}}</td><td>{{if .Anomaly}}anomaly{{else}}normal{{end}}</td></tr>
{{end}}</table>
{{else}}
<p class="banner warn">No data yet.</p>
{{end}}
{{if .Alerts}}<h2>Recent alerts</h2><ul>
{{range .Alerts}}<li>{{.At.Format "15:04:05"}} {{.BPM}} BPM, {{.Status}}: {{if .Sent}}sent{{else}}not delivered{{end}}</li>
{{end}}</ul>{{end}}
</body></html>`))

var profileTmpl = template.Must(template.New("profile").Funcs(funcs).Parse(layout + `{{template "head" .}}
<h1>Patient profile</h1>
{{if .Saved}}<p class="banner ok">Profile updated.</p>{{end}}
{{if .Error}}<p class="banner error">{{.Error}}</p>{{end}}
<form method="post" action="/profile">
<h3>Demographics</h3>
<p><label>Name <input name="name" value="{{.Name}}"></label></p>
<p><label>Age <input name="age" type="number" min="0" max="120" step="1" value="{{.Age}}"></label></p>
<h3>Medical information</h3>
<p><label>Conditions (comma separated)<br><textarea name="conditions" rows="4" cols="50">{{.Conditions}}</textarea></label></p>
<p><button type="submit">Save</button></p>
</form>
</body></html>`))
