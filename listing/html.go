// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package listing

import (
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"
)

var page = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Directory listing for {{.Path}}</title>
</head>
<body>
<h1>Directory listing for {{.Path}}</h1>
<hr>
<table>
<tr><th>Name</th><th>Size</th><th>Modified</th></tr>
{{- if .Parent}}
<tr><td><a href="../">../</a></td><td>-</td><td>-</td></tr>
{{- end}}
{{- range .Rows}}
<tr><td><a href="{{.Href}}">{{.Name}}</a></td><td>{{.Size}}</td><td>{{.ModTime}}</td></tr>
{{- end}}
</table>
<hr>
</body>
</html>
`))

type row struct {
	Href    string
	Name    string
	Size    string
	ModTime string
}

type pageData struct {
	Path   string
	Parent bool
	Rows   []row
}

// HTML returns the Renderer producing an HTML table with one link per
// entry. Directory names carry a trailing slash.
func HTML() Renderer {
	return RendererFunc(renderHTML)
}

func renderHTML(w io.Writer, urlPath string, entries []Entry) error {
	data := pageData{
		Path:   urlPath,
		Parent: urlPath != "/",
		Rows:   make([]row, 0, len(entries)),
	}
	for _, e := range entries {
		r := row{
			// relative to the directory so names containing a colon
			// are never taken for a scheme
			Href:    "./" + url.PathEscape(e.Name),
			Name:    e.Name,
			Size:    strconv.FormatInt(e.Size, 10),
			ModTime: e.ModTime.UTC().Format(time.DateTime),
		}
		if e.IsDir {
			r.Href += "/"
			r.Name += "/"
			r.Size = "-"
		}
		data.Rows = append(data.Rows, r)
	}
	return page.Execute(w, data)
}
