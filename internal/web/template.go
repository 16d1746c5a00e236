package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/inputd/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>inputd</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.pressed { color: green; font-weight: bold; }
.released { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.warn { color: red; font-weight: bold; }
</style>
</head>
<body>
<h1>inputd</h1>

<h2>Inputs</h2>
<table>
{{range .ButtonRows}}<tr><th>{{.Name}}</th><td class="{{if .Pressed}}pressed{{else}}released{{end}}">{{if .Pressed}}pressed{{else}}released{{end}}</td></tr>
{{end}}{{if .VolumeKnown}}<tr><th>Volume</th><td>level {{.VolumeLevel}}</td></tr>
{{end}}<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Player</th><td>{{.Config.PlayerAddr}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
</table>

<h2>Events</h2>
<table>
<tr><th>Pressed</th><td>{{.Counts.Pressed}}</td></tr>
<tr><th>Released</th><td>{{.Counts.Released}}</td></tr>
<tr><th>Volume changes</th><td>{{.Counts.VolumeChanges}}</td></tr>
<tr><th>Delivered</th><td>{{.Dispatch.Delivered}}</td></tr>
<tr><th>Retried</th><td>{{.Dispatch.Retried}}</td></tr>
<tr><th>Dropped</th><td{{if .Dispatch.Dropped}} class="warn"{{end}}>{{.Dispatch.Dropped}}</td></tr>
<tr><th>Buttons lost</th><td{{if .Dispatch.ButtonsLost}} class="warn"{{end}}>{{.Dispatch.ButtonsLost}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Digital poll</th><td>{{.Config.DigitalPollMs}}ms</td></tr>
<tr><th>Analog poll</th><td>{{.Config.AnalogPollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type buttonRow struct {
	Name    string
	Pressed bool
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]buttonRow, 0, len(snap.Buttons))
	for name, pressed := range snap.Buttons {
		rows = append(rows, buttonRow{Name: name, Pressed: pressed})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	data := struct {
		status.Snapshot
		ButtonRows []buttonRow
		Uptime     time.Duration
	}{
		Snapshot:   snap,
		ButtonRows: rows,
		Uptime:     snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
