package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/power-modes/internal/status"
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
	"modeClass": func(s string) string {
		switch s {
		case "ACTIVE":
			return "active"
		case "SLEEP", "DEEP_SLEEP":
			return "asleep"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Power Modes</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.asleep { color: #36c; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Power Modes</h1>

<h2>State</h2>
<table>
<tr><th>Mode</th><td class="{{modeClass (printf "%s" .Mode)}}">{{printf "%s" .Mode}}</td></tr>
<tr><th>Button presses</th><td>{{.Presses}}</td></tr>
{{with .LastTransition}}<tr><th>Last transition</th><td>{{printf "%s" .Mode}} {{printf "%s" .Outcome}}{{if .VetoedBy}} by {{.VetoedBy}}{{end}}</td></tr>{{end}}
</table>
{{if .CanPress}}<form method="post" action="/press"><button type="submit">Press button</button></form>{{end}}

<h2>Transitions</h2>
<table>
<tr><th>Sleep</th><td>{{.Counts.Sleep}}</td></tr>
<tr><th>Deep Sleep</th><td>{{.Counts.DeepSleep}}</td></tr>
<tr><th>Vetoed</th><td>{{.Counts.Vetoed}}</td></tr>
<tr><th>Cancelled</th><td>{{.Counts.Cancelled}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Button pin</th><td>{{.Config.PinButton}}</td></tr>
<tr><th>LED pin</th><td>{{.Config.PinLED}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Blink</th><td>{{.Config.BlinkMs}}ms</td></tr>
<tr><th>Console</th><td>{{.Config.Console}}</td></tr>
<tr><th>Simulated</th><td>{{if .Config.Simulated}}yes{{else}}no{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, canPress bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		CanPress bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		CanPress: canPress,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("render status page: %v", err)
	}
}
