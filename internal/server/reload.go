package server

import (
	"strings"

	"golang.org/x/net/html"
)

// reloadScript reconnects with a small backoff so a server restart during
// editing does not strand the page.
const reloadScript = `<script>
(function() {
	var retry = 500;
	function connect() {
		var proto = location.protocol === "https:" ? "wss:" : "ws:";
		var ws = new WebSocket(proto + "//" + location.host + "/ws");
		ws.onmessage = function() { location.reload(); };
		ws.onclose = function() {
			setTimeout(connect, retry);
			retry = Math.min(retry * 2, 5000);
		};
	}
	connect();
})();
</script>`

// injectReloadScript splices the live-reload script in front of the closing
// body tag. Fragments without one get the script appended, which the browser
// tolerates for preview purposes.
func injectReloadScript(document string) string {
	offset := bodyCloseOffset(document)
	if offset < 0 {
		return document + reloadScript
	}
	return document[:offset] + reloadScript + document[offset:]
}

// bodyCloseOffset returns the byte offset of the document's closing body
// tag, or -1 when the markup has none. Tokenizing instead of string
// searching keeps `</body>` inside scripts, comments, or attribute values
// from being mistaken for the real one.
func bodyCloseOffset(document string) int {
	z := html.NewTokenizer(strings.NewReader(document))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return -1
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				return offset
			}
		}
		offset += raw
	}
}
