package server

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const reloadScript = `<script>
(function () {
	var proto = location.protocol === "https:" ? "wss://" : "ws://";
	var ws = new WebSocket(proto + location.host + "/ws");
	ws.onmessage = function (e) {
		var msg = JSON.parse(e.data);
		if (msg.type === "reload") { location.reload(); }
	};
	ws.onclose = function () { setTimeout(function () { location.reload(); }, 1000); };
})();
</script>`

const pageStyle = `<style>
body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.container { max-width: 900px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
h1 { color: #333; border-bottom: 2px solid #007acc; padding-bottom: 10px; }
li { margin: 6px 0; }
a { color: #007acc; text-decoration: none; }
.empty { color: #666; }
</style>`

type pageLink struct {
	Href string
	Name string
}

// injectReload places the live-reload script before the last </body>, or at
// the end for fragments.
func injectReload(html string) string {
	if i := strings.LastIndex(strings.ToLower(html), "</body>"); i >= 0 {
		return html[:i] + reloadScript + "\n" + html[i:]
	}
	return html + "\n" + reloadScript
}

func indexPage(root string, pages []pageLink) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>pugar - ")
		b.WriteString(templ.EscapeString(root))
		b.WriteString("</title>\n")
		b.WriteString(pageStyle)
		b.WriteString("\n</head>\n<body>\n<div class=\"container\">\n<h1>Pages in ")
		b.WriteString(templ.EscapeString(root))
		b.WriteString("</h1>\n")
		if len(pages) == 0 {
			b.WriteString("<p class=\"empty\">No pages found. Create index.pug to get started.</p>\n")
		} else {
			b.WriteString("<ul>\n")
			for _, p := range pages {
				fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", templ.EscapeString(p.Href), templ.EscapeString(p.Name))
			}
			b.WriteString("</ul>\n")
		}
		b.WriteString("</div>\n")
		b.WriteString(reloadScript)
		b.WriteString("\n</body>\n</html>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// errorPage shows the overlay for failed renders. overlay is trusted HTML
// produced by the error collector.
func errorPage(overlay string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>pugar - render error</title>\n</head>\n<body>\n"+
			overlay+"\n"+reloadScript+"\n</body>\n</html>\n")
		return err
	})
}
