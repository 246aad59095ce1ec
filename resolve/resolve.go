// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resolve maps request targets onto files below a root directory.
package resolve

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/z5labs/fileserver/http1"
	"github.com/z5labs/fileserver/mimetype"
)

// Kind is the kind of a resolved Resource.
type Kind int

const (
	// File is a regular file served with its exact size.
	File Kind = iota

	// Directory is a directory whose contents are listed.
	Directory

	// Redirect sends the client to Resource.Location.
	Redirect
)

// String implements the [fmt.Stringer] interface.
func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Redirect:
		return "redirect"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Resource is the outcome of resolving one request target. It is never
// cached across requests.
type Resource struct {
	Kind Kind

	// Path is the real filesystem path with all symbolic links resolved.
	Path string

	// URLPath is the decoded and cleaned request path. Directories end
	// with a slash.
	URLPath string

	Size        int64
	ContentType string
	ModTime     time.Time

	// Location is only set for redirects.
	Location string
}

// Option configures a Resolver.
type Option func(*Resolver)

// IndexFile sets the name of the file served in place of a directory
// listing. An empty name disables index files.
func IndexFile(name string) Option {
	return func(r *Resolver) {
		r.index = name
	}
}

// Listing enables or disables directory listings.
func Listing(enabled bool) Option {
	return func(r *Resolver) {
		r.listing = enabled
	}
}

// ContentTypes sets the table used to pick the content type of files.
func ContentTypes(t *mimetype.Table) Option {
	return func(r *Resolver) {
		r.types = t
	}
}

// Resolver maps request targets onto resources below a root directory.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	root    string
	index   string
	listing bool
	types   *mimetype.Table
}

// New returns a Resolver serving the directory root. The root is made
// absolute and its symbolic links are resolved once here.
func New(root string, opts ...Option) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "serve", Path: real, Err: ErrNotDirectory}
	}

	r := &Resolver{
		root:    real,
		index:   "index.html",
		listing: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.types == nil {
		r.types = mimetype.New(nil)
	}
	return r, nil
}

// Root returns the canonical root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps target onto a Resource. Failures are always of type Error.
func (r *Resolver) Resolve(target string) (*Resource, error) {
	rawPath, rawQuery, err := splitTarget(target)
	if err != nil {
		return nil, newError(http1.StatusBadRequest, target, err)
	}

	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, newError(http1.StatusBadRequest, target, err)
	}
	if strings.IndexByte(decoded, 0) >= 0 {
		return nil, newError(http1.StatusBadRequest, target, ErrNulByte)
	}

	segments, dirRef, err := cleanSegments(decoded)
	if err != nil {
		return nil, newError(http1.StatusForbidden, target, err)
	}
	urlPath := "/" + strings.Join(segments, "/")

	real, err := filepath.EvalSymlinks(filepath.Join(r.root, filepath.FromSlash(urlPath)))
	if err != nil {
		return nil, fsError(target, err)
	}
	if !r.contains(real) {
		return nil, newError(http1.StatusForbidden, target, ErrEscapesRoot)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fsError(target, err)
	}

	switch {
	case info.IsDir():
		return r.resolveDir(target, real, urlPath, rawQuery, dirRef, info)
	case dirRef:
		return nil, newError(http1.StatusNotFound, target, ErrNotDirectory)
	case !info.Mode().IsRegular():
		return nil, newError(http1.StatusForbidden, target, ErrNotRegular)
	}
	return r.file(real, urlPath, info), nil
}

func (r *Resolver) resolveDir(target, real, urlPath, rawQuery string, dirRef bool, info fs.FileInfo) (*Resource, error) {
	if urlPath != "/" {
		urlPath += "/"
	}
	if !dirRef {
		loc := (&url.URL{Path: urlPath}).EscapedPath()
		if rawQuery != "" {
			loc += "?" + rawQuery
		}
		return &Resource{
			Kind:     Redirect,
			Path:     real,
			URLPath:  urlPath,
			Location: loc,
		}, nil
	}

	res, err := r.indexFile(target, real, urlPath)
	if err != nil || res != nil {
		return res, err
	}

	if !r.listing {
		return nil, newError(http1.StatusForbidden, target, ErrListingDisabled)
	}
	return &Resource{
		Kind:        Directory,
		Path:        real,
		URLPath:     urlPath,
		Size:        -1,
		ContentType: "text/html; charset=utf-8",
		ModTime:     info.ModTime(),
	}, nil
}

// indexFile returns nil without an error if the directory has no index
// file that can be served.
func (r *Resolver) indexFile(target, dir, urlPath string) (*Resource, error) {
	if r.index == "" {
		return nil, nil
	}
	real, err := filepath.EvalSymlinks(filepath.Join(dir, r.index))
	if err != nil {
		if fsError(target, err).Status == http1.StatusNotFound {
			return nil, nil
		}
		return nil, fsError(target, err)
	}
	if !r.contains(real) {
		return nil, nil
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fsError(target, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return r.file(real, urlPath+r.index, info), nil
}

func (r *Resolver) file(real, urlPath string, info fs.FileInfo) *Resource {
	return &Resource{
		Kind:        File,
		Path:        real,
		URLPath:     urlPath,
		Size:        info.Size(),
		ContentType: r.types.ByName(urlPath),
		ModTime:     info.ModTime(),
	}
}

// Open opens the file behind a File resource. The returned info describes
// the opened file, which may differ from the resource if the file changed
// after it was resolved.
func (r *Resolver) Open(res *Resource) (*os.File, fs.FileInfo, error) {
	f, err := os.Open(res.Path)
	if err != nil {
		return nil, nil, fsError(res.URLPath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fsError(res.URLPath, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, newError(http1.StatusForbidden, res.URLPath, ErrNotRegular)
	}
	return f, info, nil
}

func (r *Resolver) contains(real string) bool {
	if real == r.root {
		return true
	}
	prefix := r.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(real, prefix)
}

// splitTarget returns the still encoded path and query of an origin-form
// or absolute-form request target.
func splitTarget(target string) (string, string, error) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if !strings.HasPrefix(target, "/") {
		i := strings.Index(target, "://")
		if i <= 0 {
			return "", "", ErrInvalidTarget
		}
		rest := target[i+len("://"):]
		j := strings.IndexAny(rest, "/?")
		switch {
		case j < 0:
			target = "/"
		case rest[j] == '?':
			target = "/" + rest[j:]
		default:
			target = rest[j:]
		}
	}

	rawPath, rawQuery, _ := strings.Cut(target, "?")
	return rawPath, rawQuery, nil
}

// cleanSegments applies dot segments lexically. It reports whether the
// path names a directory, i.e. ends with a slash or a dot segment.
func cleanSegments(p string) ([]string, bool, error) {
	parts := strings.Split(p, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return nil, false, ErrEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			// a decoded backslash is a separator on some platforms
			if filepath.Separator != '/' && strings.ContainsRune(part, filepath.Separator) {
				return nil, false, ErrEscapesRoot
			}
			segments = append(segments, part)
		}
	}

	last := path.Base(p)
	dirRef := strings.HasSuffix(p, "/") || last == "." || last == ".."
	return segments, dirRef, nil
}
