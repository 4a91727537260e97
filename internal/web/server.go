// Package web provides the HTTP status page and data-root file browser.
package web

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"path"
	"strings"

	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker and serves
// dataRoot under /files/. An empty dataRoot disables the browser.
func New(addr string, tracker *status.Tracker, dataRoot string) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if dataRoot != "" {
		files := newHiddenFS(http.Dir(dataRoot), config.FilePath)
		mux.Handle("/files/", http.StripPrefix("/files", http.FileServer(files)))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// hiddenFS serves a directory tree with the device config removed from
// both lookups and listings. The config holds WiFi and account
// credentials. Names are matched case-insensitively, since the data root
// may be FAT, and the match covers every name starting with the config's
// own, so temporary files written during a save stay hidden too.
type hiddenFS struct {
	http.FileSystem
	hidden string
}

func newHiddenFS(root http.FileSystem, hidden string) hiddenFS {
	return hiddenFS{FileSystem: root, hidden: path.Clean("/" + hidden)}
}

func (h hiddenFS) hides(name string) bool {
	dir, base := path.Split(path.Clean("/" + name))
	hdir, hbase := path.Split(h.hidden)
	if !strings.EqualFold(path.Clean(dir), path.Clean(hdir)) {
		return false
	}
	base = strings.TrimPrefix(base, ".")
	return len(base) >= len(hbase) && strings.EqualFold(base[:len(hbase)], hbase)
}

func (h hiddenFS) Open(name string) (http.File, error) {
	if h.hides(name) {
		return nil, fs.ErrNotExist
	}
	f, err := h.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	return hiddenFile{File: f, dir: path.Clean("/" + name), fs: h}, nil
}

type hiddenFile struct {
	http.File
	dir string
	fs  hiddenFS
}

func (f hiddenFile) Readdir(n int) ([]fs.FileInfo, error) {
	infos, err := f.File.Readdir(n)
	out := infos[:0]
	for _, fi := range infos {
		if !f.fs.hides(path.Join(f.dir, fi.Name())) {
			out = append(out, fi)
		}
	}
	return out, err
}
