package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/system"
)

// validator is implemented by params that have required fields.
type validator interface {
	validate() error
}

// targeted params name the window they act on.
type targeted interface {
	validator
	target() core.WindowID
}

// decode unmarshals raw into P and runs its validation.
func decode[P any](raw json.RawMessage) (P, *ipc.Error) {
	var p P
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	raw = exactKeys(raw, reflect.TypeOf(p))
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, invalidParams(err)
	}
	if v, ok := any(&p).(validator); ok {
		if err := v.validate(); err != nil {
			return p, invalidParams(err)
		}
	}
	return p, nil
}

var (
	fieldCache      sync.Map // reflect.Type -> map[string]reflect.Type
	unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

// exactKeys drops object members whose key names a field of t only up to
// case, so `WINDOWID` is treated as unknown rather than bound to windowId.
// Nested structs and slices of structs are filtered the same way. raw is
// returned untouched when nothing was dropped or it is not an object.
func exactKeys(raw json.RawMessage, t reflect.Type) json.RawMessage {
	if t == nil {
		return raw
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return raw
	}
	switch t.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return raw
		}
		fields := jsonFields(t)
		changed := false
		for key, val := range obj {
			ft, ok := fields[key]
			if !ok {
				if foldMatch(fields, key) {
					delete(obj, key)
					changed = true
				}
				continue
			}
			if fixed := exactKeys(val, ft); !sameBytes(fixed, val) {
				obj[key] = fixed
				changed = true
			}
		}
		if !changed {
			return raw
		}
		out, err := json.Marshal(obj)
		if err != nil {
			return raw
		}
		return out
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return raw
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || items == nil {
			return raw
		}
		changed := false
		for i, item := range items {
			if fixed := exactKeys(item, t.Elem()); !sameBytes(fixed, item) {
				items[i] = fixed
				changed = true
			}
		}
		if !changed {
			return raw
		}
		out, err := json.Marshal(items)
		if err != nil {
			return raw
		}
		return out
	}
	return raw
}

// sameBytes reports whether a and b share their backing array, which is how
// exactKeys signals that nothing changed.
func sameBytes(a, b json.RawMessage) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func foldMatch(fields map[string]reflect.Type, key string) bool {
	for name := range fields {
		if strings.EqualFold(name, key) {
			return true
		}
	}
	return false
}

// jsonFields maps the JSON names of t's fields, embedded ones included, to
// their types.
func jsonFields(t reflect.Type) map[string]reflect.Type {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]reflect.Type)
	}
	fields := make(map[string]reflect.Type)
	collectFields(t, fields)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, into map[string]reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectFields(ft, into)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		into[name] = f.Type
	}
}

func invalidParams(err error) *ipc.Error {
	return ipc.Errorf(ipc.CodeInvalidParams, "Invalid params: "+err.Error(), nil)
}

func missing(field string) error {
	return fmt.Errorf("missing field `%s`", field)
}

type windowRef struct {
	WindowID *string `json:"windowId"`
}

func (p *windowRef) validate() error {
	if p.WindowID == nil {
		return missing("windowId")
	}
	return nil
}

func (p *windowRef) target() core.WindowID {
	return core.WindowID(*p.WindowID)
}

type titleParams struct {
	windowRef
	Title *string `json:"title"`
}

func (p *titleParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if p.Title == nil {
		return missing("title")
	}
	return nil
}

type sizeParams struct {
	windowRef
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

func (p *sizeParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if p.Width == nil {
		return missing("width")
	}
	if p.Height == nil {
		return missing("height")
	}
	return core.ValidateSize(p.size())
}

func (p *sizeParams) size() core.Size {
	return core.Size{Width: *p.Width, Height: *p.Height}
}

// limitParams sets or clears a min/max size; both dimensions null clears it.
type limitParams struct {
	windowRef
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

func (p *limitParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if (p.Width == nil) != (p.Height == nil) {
		return errors.New("width and height must both be set or both be null")
	}
	if p.Width != nil {
		return core.ValidateSize(core.Size{Width: *p.Width, Height: *p.Height})
	}
	return nil
}

func (p *limitParams) limit() *core.Size {
	if p.Width == nil {
		return nil
	}
	return &core.Size{Width: *p.Width, Height: *p.Height}
}

type positionParams struct {
	windowRef
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (p *positionParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if p.X == nil {
		return missing("x")
	}
	if p.Y == nil {
		return missing("y")
	}
	return nil
}

func (p *positionParams) position() core.Position {
	return core.Position{X: *p.X, Y: *p.Y}
}

type boundsParams struct {
	windowRef
	X      *int `json:"x"`
	Y      *int `json:"y"`
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

func (p *boundsParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	fields := []struct {
		name string
		v    *int
	}{{"x", p.X}, {"y", p.Y}, {"width", p.Width}, {"height", p.Height}}
	for _, f := range fields {
		if f.v == nil {
			return missing(f.name)
		}
	}
	return core.ValidateSize(core.Size{Width: *p.Width, Height: *p.Height})
}

type flagParams struct {
	windowRef
	Value *bool `json:"value"`
}

func (p *flagParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if p.Value == nil {
		return missing("value")
	}
	return nil
}

type iconParams struct {
	windowRef
	IconPath  string `json:"iconPath"`
	IconPath2 string `json:"icon_path"`
}

func (p *iconParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if p.path() == "" {
		return missing("iconPath")
	}
	return nil
}

func (p *iconParams) path() string {
	if p.IconPath != "" {
		return p.IconPath
	}
	return p.IconPath2
}

type attentionParams struct {
	windowRef
	Type *string `json:"type"`
}

func (p *attentionParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	_, err := p.kind()
	return err
}

func (p *attentionParams) kind() (core.AttentionType, error) {
	if p.Type == nil {
		return core.AttentionCancel, nil
	}
	switch *p.Type {
	case "critical":
		return core.AttentionCritical, nil
	case "informational":
		return core.AttentionInformational, nil
	default:
		return core.AttentionCancel, fmt.Errorf("unknown attention type %q", *p.Type)
	}
}

type evalParams struct {
	windowRef
	Code *string `json:"code"`
}

func (p *evalParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if p.Code == nil {
		return missing("code")
	}
	return nil
}

type postMessageParams struct {
	windowRef
	Payload json.RawMessage `json:"payload"`
}

func (p *postMessageParams) validate() error {
	if err := p.windowRef.validate(); err != nil {
		return err
	}
	if len(p.Payload) == 0 {
		return missing("payload")
	}
	return nil
}

type createParams struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	HTML        *string `json:"html"`
	Width       *int    `json:"width"`
	Height      *int    `json:"height"`
	X           *int    `json:"x"`
	Y           *int    `json:"y"`
	MinWidth    *int    `json:"minWidth"`
	MinHeight   *int    `json:"minHeight"`
	MaxWidth    *int    `json:"maxWidth"`
	MaxHeight   *int    `json:"maxHeight"`
	IconPath    string  `json:"iconPath"`
	IconPath2   string  `json:"icon_path"`
	Resizable   *bool   `json:"resizable"`
	AlwaysOnTop *bool   `json:"alwaysOnTop"`
	Fullscreen  *bool   `json:"fullscreen"`
	Decorations *bool   `json:"decorations"`
	Center      *bool   `json:"center"`
	Preload     *string `json:"preload"`
	Show        *bool   `json:"show"`
	Devtools    *bool   `json:"devtools"`
}

func (p *createParams) validate() error {
	_, err := p.options()
	return err
}

// options folds the params over the defaults.
func (p *createParams) options() (core.WindowOptions, error) {
	opts := core.DefaultWindowOptions()
	setString(&opts.Title, p.Title)
	setString(&opts.URL, p.URL)
	setString(&opts.HTML, p.HTML)
	setString(&opts.Preload, p.Preload)
	setInt(&opts.Size.Width, p.Width)
	setInt(&opts.Size.Height, p.Height)
	setBool(&opts.Resizable, p.Resizable)
	setBool(&opts.AlwaysOnTop, p.AlwaysOnTop)
	setBool(&opts.Fullscreen, p.Fullscreen)
	setBool(&opts.Decorations, p.Decorations)
	setBool(&opts.Center, p.Center)
	setBool(&opts.Visible, p.Show)
	setBool(&opts.Devtools, p.Devtools)
	opts.IconPath = p.IconPath
	if opts.IconPath == "" {
		opts.IconPath = p.IconPath2
	}

	var err error
	if opts.Position, err = pair(p.X, p.Y, "x", "y"); err != nil {
		return opts, err
	}
	if opts.MinSize, err = sizePair(p.MinWidth, p.MinHeight, "minWidth", "minHeight"); err != nil {
		return opts, err
	}
	if opts.MaxSize, err = sizePair(p.MaxWidth, p.MaxHeight, "maxWidth", "maxHeight"); err != nil {
		return opts, err
	}
	return opts, core.ValidateWindowOptions(opts)
}

func pair(a, b *int, an, bn string) (*core.Position, error) {
	if a == nil && b == nil {
		return nil, nil
	}
	if a == nil || b == nil {
		return nil, fmt.Errorf("%s and %s must be given together", an, bn)
	}
	return &core.Position{X: *a, Y: *b}, nil
}

func sizePair(w, h *int, wn, hn string) (*core.Size, error) {
	if w == nil && h == nil {
		return nil, nil
	}
	if w == nil || h == nil {
		return nil, fmt.Errorf("%s and %s must be given together", wn, hn)
	}
	return &core.Size{Width: *w, Height: *h}, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

type fileFilter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

type openDialogParams struct {
	Title     string       `json:"title"`
	Directory bool         `json:"directory"`
	Multiple  bool         `json:"multiple"`
	Filters   []fileFilter `json:"filters"`
}

func (p *openDialogParams) options() system.OpenOptions {
	opts := system.OpenOptions{Title: p.Title, Directory: p.Directory, Multiple: p.Multiple}
	for _, f := range p.Filters {
		opts.Filters = append(opts.Filters, system.FileFilter{Name: f.Name, Extensions: f.Extensions})
	}
	return opts
}

type saveDialogParams struct {
	Title            string `json:"title"`
	DefaultFileName  string `json:"defaultFileName"`
	DefaultFileName2 string `json:"default_file_name"`
}

func (p *saveDialogParams) options() system.SaveOptions {
	name := p.DefaultFileName
	if name == "" {
		name = p.DefaultFileName2
	}
	return system.SaveOptions{Title: p.Title, DefaultFileName: name}
}

type getPathParams struct {
	Name     *string `json:"name"`
	AppName  string  `json:"appName"`
	AppName2 string  `json:"app_name"`
}

func (p *getPathParams) validate() error {
	if p.Name == nil {
		return missing("name")
	}
	return nil
}

func (p *getPathParams) app() string {
	if p.AppName != "" {
		return p.AppName
	}
	return p.AppName2
}

type openExternalParams struct {
	Target *string `json:"target"`
}

func (p *openExternalParams) validate() error {
	if p.Target == nil {
		return missing("target")
	}
	return nil
}

type clipboardWriteParams struct {
	Text *string `json:"text"`
}

func (p *clipboardWriteParams) validate() error {
	if p.Text == nil {
		return missing("text")
	}
	return nil
}
