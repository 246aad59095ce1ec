// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mimetype maps file names to media types.
package mimetype

import (
	"mime"
	"path"
	"strings"
)

// Default is the media type of files whose extension is unknown.
const Default = "application/octet-stream"

var builtin = map[string]string{
	"7z":    "application/x-7z-compressed",
	"atom":  "application/atom+xml",
	"avif":  "image/avif",
	"bin":   "application/octet-stream",
	"bmp":   "image/bmp",
	"css":   "text/css; charset=utf-8",
	"csv":   "text/csv; charset=utf-8",
	"doc":   "application/msword",
	"flv":   "video/x-flv",
	"gif":   "image/gif",
	"gz":    "application/gzip",
	"htm":   "text/html; charset=utf-8",
	"html":  "text/html; charset=utf-8",
	"ico":   "image/x-icon",
	"jar":   "application/java-archive",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "text/javascript; charset=utf-8",
	"json":  "application/json",
	"m4a":   "audio/x-m4a",
	"md":    "text/markdown; charset=utf-8",
	"mjs":   "text/javascript; charset=utf-8",
	"mov":   "video/quicktime",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"mpeg":  "video/mpeg",
	"mpg":   "video/mpeg",
	"otf":   "font/otf",
	"pdf":   "application/pdf",
	"png":   "image/png",
	"ppt":   "application/vnd.ms-powerpoint",
	"ps":    "application/postscript",
	"rar":   "application/vnd.rar",
	"rss":   "application/rss+xml",
	"rtf":   "application/rtf",
	"svg":   "image/svg+xml",
	"tar":   "application/x-tar",
	"ttf":   "font/ttf",
	"txt":   "text/plain; charset=utf-8",
	"wasm":  "application/wasm",
	"wav":   "audio/wav",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xls":   "application/vnd.ms-excel",
	"xml":   "text/xml; charset=utf-8",
	"yaml":  "application/yaml",
	"yml":   "application/yaml",
	"zip":   "application/zip",
}

// Table resolves media types from file extensions. A Table is immutable
// once built and safe for concurrent use.
type Table struct {
	types map[string]string
}

// New returns a Table which consults overrides before the built in types.
// Override keys are extensions with or without their leading dot and are
// matched case-insensitively.
func New(overrides map[string]string) *Table {
	t := &Table{
		types: make(map[string]string, len(builtin)+len(overrides)),
	}
	for ext, typ := range builtin {
		t.types[ext] = typ
	}
	for ext, typ := range overrides {
		ext = normalize(ext)
		if ext == "" || typ == "" {
			continue
		}
		t.types[ext] = typ
	}
	return t
}

// ByExtension returns the media type for ext. Extensions missing from the
// table fall back to the system registry and then to Default.
func (t *Table) ByExtension(ext string) string {
	ext = normalize(ext)
	if ext == "" {
		return Default
	}
	if typ, ok := t.types[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension("." + ext); typ != "" {
		return typ
	}
	return Default
}

// ByName returns the media type for the file name or path name.
func (t *Table) ByName(name string) string {
	return t.ByExtension(path.Ext(name))
}

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
