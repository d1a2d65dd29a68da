package panel

import (
	_ "embed"
	"encoding/json"
	"strings"
)

// ServerURL is where bokeh serve listens by default.
const ServerURL = "http://localhost:5006/"

//go:embed panel.html
var panelHTML string

// HTML returns the panel markup: a single full-window iframe on ServerURL.
func HTML() string {
	return panelHTML
}

// lifecycleScript keeps a websocket open for as long as the page is shown so
// the daemon can tell when the tab is closed, and focuses the tab on reveal.
const lifecycleScript = `<script>
(function() {
	var panel = %PANEL%;
	var token = %TOKEN%;
	var proto = location.protocol === "https:" ? "wss:" : "ws:";
	var url = proto + "//" + location.host + "/ws?token=" + encodeURIComponent(token) + "&panel=" + encodeURIComponent(panel);
	var ws = new WebSocket(url);
	ws.onmessage = function(ev) {
		var msg;
		try { msg = JSON.parse(ev.data); } catch (e) { return; }
		if (msg.type === "reveal" && msg.panel === panel) {
			window.focus();
			document.title = "Bokeh Preview";
		}
	};
	ws.onclose = function() {
		document.title = "Bokeh Preview (disconnected)";
	};
})();
</script>
</body>`

// Page returns the panel markup with the lifecycle script for panel id
// injected before </body>.
func Page(id, token string) string {
	script := strings.NewReplacer(
		"%PANEL%", jsString(id),
		"%TOKEN%", jsString(token),
	).Replace(lifecycleScript)
	return strings.Replace(panelHTML, "</body>", script, 1)
}

func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
