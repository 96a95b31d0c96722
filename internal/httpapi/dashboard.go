package httpapi

import (
	"bytes"
	"cmp"
	"embed"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/onionwatch/internal/domain"
)

//go:embed web
var webFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(webFS, "web/dashboard.html"))

const timestampLayout = "2006-01-02 15:04:05 UTC"

type dashboardPage struct {
	Summary        domain.Summary
	Rows           []dashboardRow
	GeneratedAt    string
	RefreshSeconds int
}

type dashboardRow struct {
	Class        string
	Emoji        string
	Text         string
	Name         string
	Address      string
	Port         uint16
	ResponseTime string // empty when there is nothing to show
	LastCheck    string // empty means never checked
	Details      string
	DetailsClass string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Store.Snapshot(r.Context())
	if err != nil {
		s.Logger.Warn("dashboard_snapshot_error", zap.Error(err))
		http.Error(w, "snapshot error", http.StatusInternalServerError)
		return
	}

	page := dashboardPage{
		Summary:        domain.Summarize(recs),
		GeneratedAt:    s.now().UTC().Format(timestampLayout),
		RefreshSeconds: int(s.Opts.Refresh / time.Second),
	}
	for _, rec := range sortForDisplay(recs) {
		page.Rows = append(page.Rows, newDashboardRow(rec))
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, page); err != nil {
		s.Logger.Error("dashboard_render_error", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// displayRank orders Online, Checking, Unknown, Offline.
func displayRank(k domain.StatusKind) int {
	switch k {
	case domain.KindOnline:
		return 0
	case domain.KindChecking:
		return 1
	case domain.KindUnknown:
		return 2
	case domain.KindOffline:
		return 3
	default:
		return 4
	}
}

func sortForDisplay(recs []domain.EndpointRecord) []domain.EndpointRecord {
	out := slices.Clone(recs)
	slices.SortStableFunc(out, func(a, b domain.EndpointRecord) int {
		if c := cmp.Compare(displayRank(a.Status.Kind), displayRank(b.Status.Kind)); c != 0 {
			return c
		}
		return cmp.Compare(a.Endpoint.Name, b.Endpoint.Name)
	})
	return out
}

func newDashboardRow(rec domain.EndpointRecord) dashboardRow {
	row := dashboardRow{
		Text:         rec.Status.Kind.String(),
		Name:         rec.Endpoint.Name,
		Address:      rec.Endpoint.Address,
		Port:         rec.Endpoint.Port,
		Details:      "—",
		DetailsClass: "no-data",
	}
	if rec.LastCheck != nil {
		row.LastCheck = rec.LastCheck.UTC().Format(timestampLayout)
	}

	switch rec.Status.Kind {
	case domain.KindOnline:
		row.Class, row.Emoji = "status-online", "🟢"
		row.ResponseTime = strconv.FormatInt(rec.Status.ResponseTimeMS, 10) + "ms"
	case domain.KindOffline:
		row.Class, row.Emoji = "status-offline", "🔴"
		row.Details, row.DetailsClass = rec.Status.Error, "error-message"
	case domain.KindChecking:
		row.Class, row.Emoji = "status-checking", "🟡"
		row.Details, row.DetailsClass = "Connecting...", "checking-message"
	case domain.KindUnknown:
		row.Class, row.Emoji = "status-unknown", "⚪"
	}
	return row
}
