// Package system wraps the desktop services that are not tied to a window:
// file dialogs, well-known paths, opening URLs and the clipboard.
package system

import (
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/atotto/clipboard"
	"github.com/ncruces/zenity"
	"github.com/pkg/browser"
)

// DefaultAppName is used for per-application paths when the caller gives none.
const DefaultAppName = "nanoframe-app"

// FileFilter restricts an open dialog to a set of extensions.
type FileFilter struct {
	Name       string
	Extensions []string
}

// OpenOptions configures dialog.open.
type OpenOptions struct {
	Title     string
	Directory bool
	Multiple  bool
	Filters   []FileFilter
}

// SaveOptions configures dialog.save.
type SaveOptions struct {
	Title           string
	DefaultFileName string
}

// Services is what the host needs from the desktop outside its windows.
// Dialog calls block until the user answers.
type Services interface {
	// OpenDialog returns the chosen paths; cancelling yields an empty slice.
	OpenDialog(opts OpenOptions) ([]string, error)
	// SaveDialog reports false when the user cancelled.
	SaveDialog(opts SaveOptions) (string, bool, error)
	// AppPath resolves a well-known directory; unknown names report false.
	AppPath(name, appName string) (string, bool)
	OpenExternal(target string) error
	WriteClipboard(text string) error
	ReadClipboard() (string, error)
}

// Desktop implements Services with zenity, xdg, browser and clipboard.
type Desktop struct{}

// NewDesktop returns the platform services. Child processes spawned to open
// URLs write to log instead of inheriting stdout.
func NewDesktop(log io.Writer) *Desktop {
	if log == nil {
		log = io.Discard
	}
	browser.Stdout = log
	browser.Stderr = log
	return &Desktop{}
}

func (d *Desktop) OpenDialog(opts OpenOptions) ([]string, error) {
	options := []zenity.Option{}
	if opts.Title != "" {
		options = append(options, zenity.Title(opts.Title))
	}
	if opts.Directory {
		options = append(options, zenity.Directory())
	}
	if filters := toZenityFilters(opts.Filters); len(filters) > 0 {
		options = append(options, filters)
	}
	if opts.Multiple {
		paths, err := zenity.SelectFileMultiple(options...)
		if errors.Is(err, zenity.ErrCanceled) {
			return []string{}, nil
		}
		if err != nil {
			return nil, err
		}
		if paths == nil {
			paths = []string{}
		}
		return paths, nil
	}
	path, err := zenity.SelectFile(options...)
	if errors.Is(err, zenity.ErrCanceled) || (err == nil && path == "") {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (d *Desktop) SaveDialog(opts SaveOptions) (string, bool, error) {
	options := []zenity.Option{zenity.ConfirmOverwrite()}
	if opts.Title != "" {
		options = append(options, zenity.Title(opts.Title))
	}
	if opts.DefaultFileName != "" {
		options = append(options, zenity.Filename(opts.DefaultFileName))
	}
	path, err := zenity.SelectFileSave(options...)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, path != "", nil
}

func (d *Desktop) AppPath(name, appName string) (string, bool) {
	return resolvePath(name, appName)
}

// OpenExternal opens URLs in the default browser and anything else as a file.
func (d *Desktop) OpenExternal(target string) error {
	if target == "" {
		return errors.New("empty target")
	}
	if u, err := url.Parse(target); err == nil && len(u.Scheme) > 1 {
		return browser.OpenURL(target)
	}
	return browser.OpenFile(target)
}

func (d *Desktop) WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func (d *Desktop) ReadClipboard() (string, error) {
	if clipboard.Unsupported {
		return "", errors.New("clipboard unavailable")
	}
	return clipboard.ReadAll()
}

func toZenityFilters(filters []FileFilter) zenity.FileFilters {
	out := make(zenity.FileFilters, 0, len(filters))
	for _, f := range filters {
		if len(f.Extensions) == 0 {
			continue
		}
		patterns := make([]string, 0, len(f.Extensions))
		for _, ext := range f.Extensions {
			ext = strings.TrimPrefix(ext, ".")
			if ext == "*" {
				patterns = append(patterns, "*")
				continue
			}
			patterns = append(patterns, "*."+ext)
		}
		out = append(out, zenity.FileFilter{Name: f.Name, Patterns: patterns, CaseFold: runtime.GOOS != "linux"})
	}
	return out
}

// resolvePath maps the names accepted by app.getPath onto xdg directories.
func resolvePath(name, appName string) (string, bool) {
	if appName == "" {
		appName = DefaultAppName
	}
	switch name {
	case "home":
		return xdg.Home, xdg.Home != ""
	case "temp":
		return os.TempDir(), true
	case "appData":
		return filepath.Join(xdg.DataHome, appName), true
	case "userData":
		return filepath.Join(xdg.DataHome, appName, "User Data"), true
	case "config":
		return filepath.Join(xdg.ConfigHome, appName), true
	case "cache":
		return filepath.Join(xdg.CacheHome, appName), true
	case "desktop":
		return xdg.UserDirs.Desktop, xdg.UserDirs.Desktop != ""
	case "documents":
		return xdg.UserDirs.Documents, xdg.UserDirs.Documents != ""
	case "downloads":
		return xdg.UserDirs.Download, xdg.UserDirs.Download != ""
	default:
		return "", false
	}
}
