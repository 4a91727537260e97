package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/epaper-display/internal/status"
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
<title>E-Paper Display</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
.charging { color: green; font-weight: bold; }
</style>
</head>
<body>
<h1>E-Paper Display</h1>

<h2>Display</h2>
<table>
<tr><th>Page</th><td id="page">{{.Page}}</td></tr>
{{if .HaveSensors}}<tr><th>Temperature</th><td>{{printf "%.1f" .Sensors.Celsius}} &deg;C</td></tr>
<tr><th>Humidity</th><td>{{printf "%.1f" .Sensors.HumidityPercent}} %</td></tr>
{{if .Sensors.Pressure}}<tr><th>Pressure</th><td>{{printf "%.1f" .Sensors.HectoPascal}} hPa</td></tr>{{end}}
<tr><th>Battery</th><td{{if .Sensors.Charging}} class="charging"{{end}}>{{.Sensors.Battery}}%{{if .Sensors.Charging}} (charging){{end}}</td></tr>
<tr><th>Read at</th><td>{{.Sensors.Time.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{else}}<tr><th>Sensors</th><td>no reading yet</td></tr>{{end}}
{{if .LastKey}}<tr><th>Last key</th><td>{{.LastKey.Index}} {{.LastKey.Click}}{{if .LastKey.Action}} &rarr; {{.LastKey.Action}}{{end}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .MQTTBuffered}}, {{.MQTTBuffered}} buffered{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>WiFi</th><td>{{.Network.SSID}}</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>
{{if .Network.Gateway}}<tr><th>Gateway</th><td>{{.Network.Gateway}}</td></tr>{{end}}{{else}}<tr><th>WiFi</th><td class="disconnected">offline</td></tr>{{end}}
<tr><th>OTA</th><td>{{.OTA}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Firmware</th><td>{{.Config.Firmware}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boots</th><td>{{.BootTimes}}</td></tr>
<tr><th>Cycles</th><td>{{.LoopTimes}}</td></tr>
<tr><th>Panel</th><td>{{.Config.Panel}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .Config.DataRoot}} | <a href="/files/">Files</a>{{end}}</p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// The template needs Uptime as a field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
