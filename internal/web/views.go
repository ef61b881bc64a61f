package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/flowforge/internal/session"
	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

// ErrorAlert is the HTMX error fragment.
func ErrorAlert(msg UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(msg.Message))
		if msg.Action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(msg.Action))
		}
		fmt.Fprintf(&b, `<p class="alert-code">Code: %s</p>`, templ.EscapeString(msg.Code))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// sessionView is what SessionPage renders.
type sessionView struct {
	ID      string
	Source  string
	Table   *table.Table
	Limit   int
	History []transform.Record
	Log     []session.LogEntry
}

// SessionPage renders the preview table, the operation history and the
// activity log of one session.
func SessionPage(v sessionView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		fmt.Fprintf(&b, "<title>FlowForge · %s</title></head><body>", templ.EscapeString(v.ID))
		fmt.Fprintf(&b, `<header><h1>Session %s</h1>`, templ.EscapeString(v.ID))
		if v.Source != "" {
			fmt.Fprintf(&b, `<p class="source">Source: %s</p>`, templ.EscapeString(v.Source))
		}
		b.WriteString(`</header>`)

		previewTable(&b, v.Table, v.Limit)
		historyList(&b, v.History)
		activityLog(&b, v.Log)

		b.WriteString("</body></html>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func previewTable(b *strings.Builder, t *table.Table, limit int) {
	b.WriteString(`<section id="preview"><h2>Data</h2>`)
	if t == nil || t.NumCols() == 0 {
		b.WriteString(`<p class="empty">No data loaded.</p></section>`)
		return
	}
	fmt.Fprintf(b, `<p class="shape">%d rows × %d columns</p>`, t.NumRows(), t.NumCols())
	b.WriteString(`<table><thead><tr>`)
	for _, f := range t.Schema() {
		fmt.Fprintf(b, `<th title="%s">%s</th>`, templ.EscapeString(f.Kind.String()), templ.EscapeString(f.Name))
	}
	b.WriteString(`</tr></thead><tbody>`)
	n := t.NumRows()
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		b.WriteString(`<tr>`)
		for _, v := range t.Row(i) {
			if v == nil {
				b.WriteString(`<td class="null"></td>`)
				continue
			}
			fmt.Fprintf(b, `<td>%s</td>`, templ.EscapeString(table.Format(v)))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></section>`)
}

func historyList(b *strings.Builder, records []transform.Record) {
	b.WriteString(`<section id="history"><h2>History</h2>`)
	if len(records) == 0 {
		b.WriteString(`<p class="empty">No operations yet.</p></section>`)
		return
	}
	b.WriteString(`<ol>`)
	for _, rec := range records {
		fmt.Fprintf(b, `<li><time>%s</time> <strong>%s</strong> %s <span class="delta">rows %+d, columns %+d</span></li>`,
			rec.Timestamp.Format(transform.TimestampLayout),
			templ.EscapeString(string(rec.Operation)),
			templ.EscapeString(rec.Details),
			rec.RowsChanged(), rec.ColsChanged())
	}
	b.WriteString(`</ol></section>`)
}

func activityLog(b *strings.Builder, entries []session.LogEntry) {
	b.WriteString(`<section id="log"><h2>Activity</h2><ul>`)
	for _, e := range entries {
		class := "ok"
		if !e.Succeeded {
			class = "failed"
		}
		fmt.Fprintf(b, `<li class="%s"><time>%s</time> %s</li>`,
			class, e.Time.Format("15:04:05"), templ.EscapeString(e.Message))
	}
	b.WriteString(`</ul></section>`)
}
