package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/mrocca/tank-filler/internal/status"
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
	"liters": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Tank Filler</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
form { display: inline; }
button { padding: 6px 14px; margin: 2px 4px 2px 0; }
</style>
</head>
<body>
<h1>Tank Filler</h1>

<h2>State</h2>
<table>
<tr><th>Valve</th><td class="{{if .ValveOpen}}on{{else}}off{{end}}">{{if .ValveOpen}}OPEN{{else}}CLOSED{{end}}</td></tr>
<tr><th>Motor</th><td class="{{if .MotorOn}}on{{else}}off{{end}}">{{if .MotorOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Scheduled run</th><td>{{if .ScheduledRun}}active{{else}}no{{end}}</td></tr>
<tr><th>Flow</th><td>{{liters .RateLPM}} L/min</td></tr>
<tr><th>Total</th><td>{{liters .LitersTotal}} L</td></tr>
</table>

<h2>Controls</h2>
<p>
<form action="/valve" method="POST"><input type="hidden" name="redirect" value="1"><input type="hidden" name="state" value="{{if .ValveOpen}}off{{else}}on{{end}}"><button>{{if .ValveOpen}}Close valve{{else}}Open valve{{end}}</button></form>
<form action="/motor" method="POST"><input type="hidden" name="redirect" value="1"><input type="hidden" name="state" value="{{if .MotorOn}}off{{else}}on{{end}}"><button>{{if .MotorOn}}Stop motor{{else}}Start motor{{end}}</button></form>
<form action="/flow/reset" method="POST"><input type="hidden" name="redirect" value="1"><button>Reset total</button></form>
</p>

<h2>Schedule</h2>
<table>
<tr><th>Weekday (Mon–Fri)</th><td>{{range .WeekdayTimes}}{{.}} {{end}}</td></tr>
<tr><th>Weekend (Sat–Sun)</th><td>{{range .WeekendTimes}}{{.}} {{end}}</td></tr>
<tr><th>Stall timeout</th><td>{{.Config.StallTimeoutSec}}s</td></tr>
{{if .Config.MaxFillSec}}<tr><th>Max fill</th><td>{{.Config.MaxFillSec}}s</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Status interval</th><td>{{.Config.StatusIntervalMs}}ms</td></tr>
<tr><th>K-factor</th><td>{{.Config.KFactor}} pulses/L</td></tr>
<tr><th>Timezone</th><td>{{.Config.Timezone}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>setTimeout(function() { if (!document.hidden) location.reload(); }, 5000);</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
