package api

import (
	"bytes"
	"html/template"

	"github.com/dgnsrekt/ui_capture/internal/events"
)

var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>UI Capture Controller API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0; display: flex; flex-direction: column;">
{{- if .Feeds}}
  <details style="padding: 8px 16px; font-family: sans-serif; background: #161b22; color: #c9d1d9;">
    <summary>Run events: <code>GET {{.EventsPath}}</code></summary>
    <p>Server-sent events for capture runs. A new client first receives the most recent run's events.
    <code>feeds</code> selects feeds (comma separated); <code>follow=false</code> ends the stream after <code>run_finished</code>.</p>
    <ul>
    {{- range .Feeds}}
      <li><code>{{.}}</code> {{.Description}}</li>
    {{- end}}
    </ul>
  </details>
{{- end}}
  <elements-api
    style="flex: 1; overflow: auto;"
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`))

// renderDocs builds the docs page. The events section is listed only when the
// event stream is mounted.
func renderDocs(withEvents bool) []byte {
	data := struct {
		EventsPath string
		Feeds      []events.Feed
	}{EventsPath: eventsPath}
	if withEvents {
		data.Feeds = events.Feeds
	}
	var buf bytes.Buffer
	if err := docsTemplate.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
