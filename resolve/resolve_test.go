// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resolve

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/z5labs/fileserver/http1"
	"github.com/z5labs/fileserver/mimetype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTree creates the layout
//
//	root/index.html
//	root/sub/a.txt
//	root/empty/
//	outside/secret.txt
func newTree(t *testing.T) (string, string) {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	for _, dir := range []string{root, outside, filepath.Join(root, "sub"), filepath.Join(root, "empty")} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>home</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	return root, outside
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var rerr Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, status, rerr.Status, rerr.Error())
}

func TestNew(t *testing.T) {
	t.Run("will canonicalize the root", func(t *testing.T) {
		root, _ := newTree(t)
		link := filepath.Join(filepath.Dir(root), "link")
		require.NoError(t, os.Symlink(root, link))

		r, err := New(link)
		require.NoError(t, err)

		want, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		assert.Equal(t, want, r.Root())
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the root does not exist", func(t *testing.T) {
			_, err := New(filepath.Join(t.TempDir(), "missing"))
			assert.ErrorIs(t, err, os.ErrNotExist)
		})

		t.Run("if the root is a file", func(t *testing.T) {
			root, _ := newTree(t)

			_, err := New(filepath.Join(root, "index.html"))
			assert.ErrorIs(t, err, ErrNotDirectory)
		})
	})
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("will resolve a file", func(t *testing.T) {
		testCases := []struct {
			Name    string
			Target  string
			URLPath string
		}{
			{Name: "if the target is origin-form", Target: "/sub/a.txt", URLPath: "/sub/a.txt"},
			{Name: "if the target has a query", Target: "/sub/a.txt?v=1", URLPath: "/sub/a.txt"},
			{Name: "if the target is absolute-form", Target: "http://example.com/sub/a.txt", URLPath: "/sub/a.txt"},
			{Name: "if the target is percent-encoded", Target: "/s%75b/a%2Etxt", URLPath: "/sub/a.txt"},
			{Name: "if the target has dot segments", Target: "/sub/./../sub//a.txt", URLPath: "/sub/a.txt"},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				root, _ := newTree(t)
				r, err := New(root)
				require.NoError(t, err)

				res, err := r.Resolve(testCase.Target)
				require.NoError(t, err)

				assert.Equal(t, File, res.Kind)
				assert.Equal(t, testCase.URLPath, res.URLPath)
				assert.Equal(t, filepath.Join(r.Root(), "sub", "a.txt"), res.Path)
				assert.Equal(t, int64(len("alpha")), res.Size)
				assert.Equal(t, "text/plain; charset=utf-8", res.ContentType)
				assert.False(t, res.ModTime.IsZero())
			})
		}
	})

	t.Run("will use the configured content types", func(t *testing.T) {
		root, _ := newTree(t)
		r, err := New(root, ContentTypes(mimetype.New(map[string]string{"txt": "text/x-custom"})))
		require.NoError(t, err)

		res, err := r.Resolve("/sub/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "text/x-custom", res.ContentType)
	})

	t.Run("will serve the index file", func(t *testing.T) {
		t.Run("if the directory has one", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/")
			require.NoError(t, err)

			assert.Equal(t, File, res.Kind)
			assert.Equal(t, "/index.html", res.URLPath)
			assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
		})

		t.Run("if a custom index file name is set", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root, IndexFile("a.txt"))
			require.NoError(t, err)

			res, err := r.Resolve("/sub/")
			require.NoError(t, err)
			assert.Equal(t, File, res.Kind)
			assert.Equal(t, "/sub/a.txt", res.URLPath)
		})
	})

	t.Run("will return a directory listing", func(t *testing.T) {
		t.Run("if the directory has no index file", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/sub/")
			require.NoError(t, err)

			assert.Equal(t, Directory, res.Kind)
			assert.Equal(t, "/sub/", res.URLPath)
			assert.Equal(t, int64(-1), res.Size)
			assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
		})

		t.Run("if the index file is a directory", func(t *testing.T) {
			root, _ := newTree(t)
			require.NoError(t, os.Mkdir(filepath.Join(root, "sub", "index.html"), 0o755))
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/sub/")
			require.NoError(t, err)
			assert.Equal(t, Directory, res.Kind)
		})

		t.Run("if the index file links outside the root", func(t *testing.T) {
			root, outside := newTree(t)
			require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "empty", "index.html")))
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/empty/")
			require.NoError(t, err)
			assert.Equal(t, Directory, res.Kind)
		})
	})

	t.Run("will redirect", func(t *testing.T) {
		t.Run("if a directory is requested without a trailing slash", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/sub")
			require.NoError(t, err)
			assert.Equal(t, Redirect, res.Kind)
			assert.Equal(t, "/sub/", res.Location)
		})

		t.Run("and keep the query", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/sub?sort=name")
			require.NoError(t, err)
			assert.Equal(t, "/sub/?sort=name", res.Location)
		})

		t.Run("and escape the location", func(t *testing.T) {
			root, _ := newTree(t)
			require.NoError(t, os.Mkdir(filepath.Join(root, "a b"), 0o755))
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/a%20b")
			require.NoError(t, err)
			assert.Equal(t, "/a%20b/", res.Location)
		})
	})

	t.Run("will return 400", func(t *testing.T) {
		testCases := []struct {
			Name   string
			Target string
		}{
			{Name: "if the target contains an encoded NUL", Target: "/sub/a.txt%00.html"},
			{Name: "if the target has an invalid escape", Target: "/sub/%zz"},
			{Name: "if the target is asterisk-form", Target: "*"},
			{Name: "if the target is a relative path", Target: "sub/a.txt"},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				root, _ := newTree(t)
				r, err := New(root)
				require.NoError(t, err)

				_, err = r.Resolve(testCase.Target)
				requireStatus(t, err, http1.StatusBadRequest)
			})
		}
	})

	t.Run("will return 403", func(t *testing.T) {
		t.Run("if dot segments climb above the root", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root)
			require.NoError(t, err)

			for _, target := range []string{"/../outside/secret.txt", "/sub/../../outside/secret.txt", "/%2e%2e/outside/secret.txt"} {
				_, err = r.Resolve(target)
				requireStatus(t, err, http1.StatusForbidden)
				assert.ErrorIs(t, err, ErrEscapesRoot)
			}
		})

		t.Run("if a symbolic link points outside the root", func(t *testing.T) {
			root, outside := newTree(t)
			require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
			r, err := New(root)
			require.NoError(t, err)

			_, err = r.Resolve("/escape/secret.txt")
			requireStatus(t, err, http1.StatusForbidden)
			assert.ErrorIs(t, err, ErrEscapesRoot)
		})

		t.Run("if listings are disabled", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root, Listing(false))
			require.NoError(t, err)

			_, err = r.Resolve("/sub/")
			requireStatus(t, err, http1.StatusForbidden)
			assert.ErrorIs(t, err, ErrListingDisabled)
		})
	})

	t.Run("will follow symbolic links", func(t *testing.T) {
		t.Run("if they stay inside the root", func(t *testing.T) {
			root, _ := newTree(t)
			require.NoError(t, os.Symlink(filepath.Join(root, "sub", "a.txt"), filepath.Join(root, "alias.txt")))
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/alias.txt")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(r.Root(), "sub", "a.txt"), res.Path)
		})
	})

	t.Run("will return 404", func(t *testing.T) {
		testCases := []struct {
			Name   string
			Target string
		}{
			{Name: "if the file does not exist", Target: "/missing.txt"},
			{Name: "if a parent is a file", Target: "/sub/a.txt/b"},
			{Name: "if a file is requested as a directory", Target: "/sub/a.txt/"},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				root, _ := newTree(t)
				r, err := New(root)
				require.NoError(t, err)

				_, err = r.Resolve(testCase.Target)
				requireStatus(t, err, http1.StatusNotFound)
			})
		}
	})
}

func TestResolver_Open(t *testing.T) {
	t.Run("will open the resolved file", func(t *testing.T) {
		root, _ := newTree(t)
		r, err := New(root)
		require.NoError(t, err)

		res, err := r.Resolve("/sub/a.txt")
		require.NoError(t, err)

		f, info, err := r.Open(res)
		require.NoError(t, err)
		defer f.Close()

		b, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(b))
		assert.Equal(t, int64(5), info.Size())
	})

	t.Run("will return 404", func(t *testing.T) {
		t.Run("if the file was removed after it was resolved", func(t *testing.T) {
			root, _ := newTree(t)
			r, err := New(root)
			require.NoError(t, err)

			res, err := r.Resolve("/sub/a.txt")
			require.NoError(t, err)
			require.NoError(t, os.Remove(res.Path))

			_, _, err = r.Open(res)
			requireStatus(t, err, http1.StatusNotFound)
		})
	})
}
