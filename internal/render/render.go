package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"wachtrij/internal/queue"
	"wachtrij/internal/settings"
)

// ContentID is the element the overlay swaps on every redraw.
const ContentID = "wachtrijContent"

const LoadingText = "Loading..."

var panelTmpl = template.Must(template.New("panel").Parse(`<div class="wachtrij_panel" style="{{.Style}}"><div style="padding:20px 24px; color:#3a2a12;"><div id="{{.ContentID}}">{{.Content}}</div></div></div>`))

var groupsTmpl = template.Must(template.New("groups").Parse(`
{{- if .Loading}}<div class="wachtrij_loading">{{.LoadingText}}</div>
{{- else if not .Groups}}<div class="wachtrij_empty">{{.EmptyText}}</div>
{{- else}}{{range .Groups}}
<div class="wachtrij_group wachtrij_{{.Kind}}" style="margin-bottom:26px;">
<div style="font-family: Georgia, serif; font-size:16px; font-weight:bold; color:#5a3b12; text-shadow: 0 1px 0 #fff3d6; padding-bottom:6px; margin-bottom:12px; border-bottom:1px solid rgba(90,59,18,0.35);">{{.Title}}</div>
<div style="display:grid; grid-template-columns: repeat(3, 1fr); gap:14px 24px;">
{{- range .Entries}}
<div style="display:flex; align-items:center; gap:6px;"><div class="unit_icon40x40 unit {{.Unit}}"></div><span style="font-weight:bold;">{{.Count}}</span></div>
{{- end}}
</div>
</div>
{{- end}}{{end}}`))

type Options struct {
	Loading   bool
	EmptyText string
}

// Content renders the grouped counts that go inside ContentID.
func Content(groups []queue.Group, opts Options) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Loading     bool
		LoadingText string
		EmptyText   string
		Groups      []queue.Group
	}{
		Loading:     opts.Loading,
		LoadingText: LoadingText,
		EmptyText:   opts.EmptyText,
		Groups:      groups,
	}
	if err := groupsTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render groups: %w", err)
	}
	return buf.String(), nil
}

// Panel wraps content in the window body, styled by the display settings.
func Panel(content string, s settings.Settings) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Style     template.CSS
		ContentID string
		Content   template.HTML
	}{
		Style:     template.CSS(BackgroundStyle(s)),
		ContentID: ContentID,
		Content:   template.HTML(content),
	}
	if err := panelTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render panel: %w", err)
	}
	return buf.String(), nil
}

// BackgroundStyle turns the background preferences into inline CSS. Settings that do not
// validate render without a background.
func BackgroundStyle(s settings.Settings) string {
	url := s.ImageURL()
	if url == "" || s.Validate() != nil {
		return ""
	}

	var b strings.Builder
	veil := strconv.FormatFloat(1-s.Opacity, 'f', 2, 64)
	fmt.Fprintf(&b, `background-image: linear-gradient(rgba(255,243,214,%s), rgba(255,243,214,%s)), url("%s");`, veil, veil, url)
	b.WriteString(" background-position: center center;")
	switch s.Size {
	case settings.SizeCover:
		b.WriteString(" background-size: cover; background-repeat: no-repeat;")
	case settings.SizeContain:
		b.WriteString(" background-size: contain; background-repeat: no-repeat;")
	case settings.SizeStretch:
		b.WriteString(" background-size: 100% 100%; background-repeat: no-repeat;")
	default:
		b.WriteString(" background-size: auto; background-repeat: repeat;")
	}
	return b.String()
}
