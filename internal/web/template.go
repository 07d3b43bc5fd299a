package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tv-remote/internal/status"
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
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
	"clock": func(t time.Time) string {
		return t.UTC().Format("15:04:05.000")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Config.Name}}{{.Config.Name}}{{else}}TV Remote{{end}}</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.pressed { color: green; font-weight: bold; }
.settling { color: orange; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.FAILED { color: red; }
.SUPPRESSED, .DROPPED { color: #888; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>{{if .Config.Name}}{{.Config.Name}}{{else}}TV Remote{{end}}<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<h2>Connectivity</h2>
<table>
<tr><th>Sink</th><td id="sink" class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{.Config.Sink}} {{if .Connected}}connected{{else}}waiting for connection{{end}}</td></tr>
{{if .Config.Target}}<tr><th>Target</th><td>{{.Config.Target}}</td></tr>{{end}}
<tr><th>Input</th><td>{{.Config.Input}}</td></tr>
<tr><th>Chord held</th><td id="holding">{{if .Holding}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Buttons</h2>
<table id="buttons">
<tr><th>Button</th><th>Pin</th><th>Action</th><th>State</th><th>Lockout</th><th>Fired</th><th>Blocked</th><th>Failed</th></tr>
{{range .Buttons}}<tr>
<td>{{.ID}}</td><td>{{.Pin}}</td><td>{{.Action}}</td>
<td class="{{if .Pressed}}pressed{{else if .Settling}}settling{{else}}idle{{end}}">{{if .Pressed}}pressed{{else if .Settling}}settling{{else}}idle{{end}}</td>
<td>{{if .Lockout}}{{ms .Lockout}}ms{{else}}-{{end}}</td>
<td>{{.Fires}}</td><td>{{.Blocked}}</td><td>{{.Failures}}</td>
</tr>{{end}}
</table>

<h2>Totals</h2>
<table>
<tr><th>Fired</th><td id="fires">{{.Counts.Fires}}</td></tr>
<tr><th>Suppressed</th><td id="suppressed">{{.Counts.Suppressed}}</td></tr>
<tr><th>Dropped</th><td id="dropped">{{.Counts.Dropped}}</td></tr>
<tr><th>Failed</th><td id="failures">{{.Counts.Failures}}</td></tr>
</table>

<h2>Recent</h2>
<table id="recent">
{{range .Recent}}<tr class="{{.Result}}"><td>{{clock .Time}}</td><td>{{.Button}}</td><td>{{.Action}}</td><td>{{.Result}}</td><td>{{.Error}}</td></tr>
{{else}}<tr><td>nothing yet</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Lockout</th><td>{{.Config.LockoutMs}}ms ({{.Config.LockoutScope}})</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function text(id, v) {
    var el = document.getElementById(id);
    if (el) { el.textContent = v; }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var sock = new WebSocket(proto + location.host + "/live");
    sock.onopen = function() { setDot("ok", "live"); };
    sock.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    sock.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        var sink = document.getElementById("sink");
        sink.textContent = s.sink.type + " " + (s.sink.connected ? "connected" : "waiting for connection");
        sink.className = s.sink.connected ? "connected" : "disconnected";
        text("holding", s.holding ? "yes" : "no");
        text("fires", s.counts.fires);
        text("suppressed", s.counts.suppressed);
        text("dropped", s.counts.dropped);
        text("failures", s.counts.failures);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
