package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func statusLabel(success bool) string {
	if success {
		return "Success"
	}
	return "Failed"
}

// renderResult prints the summary table for a workflow run.
func renderResult(w io.Writer, result outreach.DiscoveryResult, withUsers bool) {
	t := newTable(w, "Results")
	t.AppendRow(table.Row{"Product", result.Product.Name})
	if result.RunID != "" {
		t.AppendRow(table.Row{"Run ID", result.RunID})
	}
	t.AppendRow(table.Row{"URLs Found", result.URLsFound})
	t.AppendRow(table.Row{"Pages Scraped", result.PagesScraped})
	if withUsers {
		t.AppendRow(table.Row{"Users Extracted", result.UsersExtracted})
	}
	if len(result.FailedProviders) > 0 {
		t.AppendRow(table.Row{"Failed Providers", strings.Join(result.FailedProviders, ", ")})
	}
	t.AppendRow(table.Row{"Status", statusLabel(result.Success)})
	t.AppendRow(table.Row{"Message", result.Message})
	t.Render()
}

func renderPages(w io.Writer, pages []outreach.Page) {
	if len(pages) == 0 {
		return
	}
	t := newTable(w, "Pages")
	t.AppendHeader(table.Row{"#", "Subreddit", "Status", "URL"})
	for i, p := range pages {
		t.AppendRow(table.Row{i + 1, p.Subreddit, p.Status, p.URL})
	}
	t.Render()
}

func renderUsers(w io.Writer, pageURL string, users []outreach.User) {
	if len(users) == 0 {
		return
	}
	t := newTable(w, fmt.Sprintf("Users on %s", pageURL))
	t.AppendHeader(table.Row{"Username", "Profile", "Reason"})
	for _, u := range users {
		t.AppendRow(table.Row{u.Username, u.ProfileURL, truncateCell(u.ReasonText, 80)})
	}
	t.Render()
}

func truncateCell(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
