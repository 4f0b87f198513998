package http

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/http"
	"net/url"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/render"
	"github.com/davecgh/go-spew/spew"
)

// View names used in metrics and view events.
const (
	viewPage       = "page"
	viewTrend      = "trend"
	viewStateMeans = "state_means"
	viewGeo        = "geo"
	viewAPI        = "api"
	viewExport     = "export"
)

// Content types served by the dashboard.
const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeSVG  = "image/svg+xml"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const footer = "Built with ❤️ using Go"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"field": func(o domain.Observation, col string) string { return o.Field(col) },
}).ParseFS(templateFS, "templates/*.html"))

type errorBody struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

type pageData struct {
	View         *domain.View
	Query        template.URL
	InsightsHTML template.HTML
	Headings     map[string]string
	Footer       string
}

type debugData struct {
	Title string
	Pre   string
}

// datasetSummary is what the debug page dumps.
type datasetSummary struct {
	Source   string
	LoadedAt string
	Rows     int
	Columns  []string
	Options  domain.Options
	Head     []domain.Observation
}

func selectionFrom(r *http.Request) domain.Selection {
	q := r.URL.Query()
	return domain.NewSelection(q.Get("state"), q.Get("month"))
}

func selectionQuery(sel domain.Selection) template.URL {
	return template.URL(url.Values{"state": {sel.State}, "month": {sel.Month}}.Encode()) //nolint:gosec // built from url.Values
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v, err := s.dash.RenderView(r.Context(), viewPage, selectionFrom(r))
	if err != nil {
		s.htmlError(w, r, err)
		return
	}

	insights, err := render.MarkdownHTML(v.Insights)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}

	data := pageData{
		View:         v,
		Query:        selectionQuery(v.Selection),
		InsightsHTML: insights,
		Headings: map[string]string{
			"Preview":    domain.HeadingPreview,
			"Trend":      domain.HeadingTrend,
			"StateMeans": domain.HeadingStateMeans,
			"Geo":        domain.HeadingGeo,
			"Insights":   domain.HeadingInsights,
		},
		Footer: footer,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		s.htmlError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

func (s *Server) handleChart(view string) http.HandlerFunc {
	draw := map[string]func(io.Writer, *domain.View) error{
		viewTrend:      render.TrendChart,
		viewStateMeans: render.StateMeanChart,
		viewGeo:        render.GeoChart,
	}[view]

	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.dash.RenderView(r.Context(), view, selectionFrom(r))
		if err != nil {
			s.plainError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := draw(&buf, v); err != nil {
			s.plainError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeSVG)
		w.Header().Set("Cache-Control", "no-cache")
		buf.WriteTo(w) //nolint:errcheck // client went away
	}
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	v, err := s.dash.RenderView(r.Context(), viewAPI, selectionFrom(r))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleAPIOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.dash.Options(r.Context())
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, opts)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel := selectionFrom(r)
	v, err := s.dash.RenderView(r.Context(), viewExport, sel)
	if err != nil {
		s.plainError(w, r, err)
		return
	}
	filtered, err := s.dash.Filtered(r.Context(), sel)
	if err != nil {
		s.plainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.WriteXLSX(&buf, filtered, v.StateMeans); err != nil {
		s.plainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="unemployment.xlsx"`)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dash.Dataset(r.Context())
	if err != nil {
		s.htmlError(w, r, err)
		return
	}

	summary := datasetSummary{
		Source:   ds.Source,
		LoadedAt: ds.LoadedAt.Format("2006-01-02T15:04:05Z07:00"),
		Rows:     ds.Len(),
		Columns:  ds.Columns,
		Options:  ds.Options(),
		Head:     ds.Head(3).Rows,
	}
	data := debugData{
		Title: "Dataset - " + ds.Source,
		Pre:   spew.Sdump(summary),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "debug.html", data); err != nil {
		s.htmlError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r.Context(), s.logger).Error("request failed", "path", r.URL.Path, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, errorBody{
		Code: http.StatusInternalServerError,
		Text: err.Error(),
	})
}

func (s *Server) htmlError(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r.Context(), s.logger).Error("request failed", "path", r.URL.Path, "error", err)
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusInternalServerError)
	templates.ExecuteTemplate(w, "error.html", errorBody{ //nolint:errcheck // already failing
		Code: http.StatusInternalServerError,
		Text: err.Error(),
	})
}

func (s *Server) plainError(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r.Context(), s.logger).Error("request failed", "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
