// Package report renders dashboard views as markdown for terminals.
package report

import (
	"fmt"
	"strings"

	"github.com/aristath/folio/internal/dashboard"
	"github.com/aristath/folio/internal/format"
)

// renderer accumulates one markdown document
type renderer struct {
	*strings.Builder
	currency string
}

func newRenderer(currency string) *renderer {
	return &renderer{Builder: &strings.Builder{}, currency: currency}
}

// Printf formats according to a format specifier and writes to the buffer
func (r *renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r, format, args...)
}

func (r *renderer) warning(text string) {
	if text != "" {
		r.Printf("> **Warning:** %s\n\n", text)
	}
}

// cell escapes text for a table cell
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// Overview renders the landing view
func Overview(o *dashboard.Overview, currency string) string {
	r := newRenderer(currency)

	r.Printf("# Overview\n\n")
	r.warning(o.Warning)
	r.Printf("| Clients | Active | Assets | Allocations | Total allocated |\n")
	r.Printf("|---:|---:|---:|---:|---:|\n")
	r.Printf("| %d | %d | %d | %d | %s |\n\n",
		o.Clients, o.ActiveClients, o.Assets, o.Allocations, format.Currency(o.Total, currency))

	r.ranked("Top clients", o.TopClients)
	r.ranked("Top assets", o.TopAssets)
	return r.String()
}

func (r *renderer) ranked(title string, entries []dashboard.Ranked) {
	if len(entries) == 0 {
		return
	}
	r.Printf("## %s\n\n", title)
	r.Printf("| # | Name | Total |\n")
	r.Printf("|---:|:---|---:|\n")
	for i, e := range entries {
		r.Printf("| %d | %s | %s |\n", i+1, cell(e.Name), format.Currency(e.Total, r.currency))
	}
	r.Printf("\n")
}

// ClientList renders the client table
func ClientList(list *dashboard.ClientList, currency string) string {
	r := newRenderer(currency)

	r.Printf("# Clients (%d of %d)\n\n", len(list.Rows), list.Total)
	r.warning(list.Warning)
	if len(list.Rows) == 0 {
		r.Printf("No clients match.\n")
		return r.String()
	}

	r.Printf("| ID | Name | Email | Status | Allocations | Total |\n")
	r.Printf("|:---|:---|:---|:---|---:|---:|\n")
	for _, row := range list.Rows {
		r.Printf("| %s | %s | %s | %s | %d | %s |\n",
			row.ID, cell(row.Name), cell(row.Email), row.Status, row.Allocations, format.Currency(row.Total, currency))
	}
	return r.String()
}

// ClientDetail renders one client with its holdings
func ClientDetail(detail *dashboard.ClientDetail, currency string) string {
	r := newRenderer(currency)
	c := detail.Client

	r.Printf("# %s\n\n", cell(c.Name))
	r.warning(detail.Warning)
	r.Printf("- **Email:** %s\n", c.Email)
	r.Printf("- **Status:** %s\n", c.Status)
	r.Printf("- **Total allocated:** %s\n", format.Currency(detail.Total, currency))
	r.Printf("- **Concentration (HHI):** %s\n\n", format.Index(detail.Concentration))

	r.allocations(detail.Allocations, true, false)
	return r.String()
}

// AssetList renders the asset table
func AssetList(list *dashboard.AssetList, currency string) string {
	r := newRenderer(currency)

	r.Printf("# Assets (%d of %d)\n\n", len(list.Rows), list.Total)
	r.warning(list.Warning)
	if len(list.Rows) == 0 {
		r.Printf("No assets match.\n")
		return r.String()
	}

	r.Printf("| ID | Name | Current value | Allocated | Holders | Share |\n")
	r.Printf("|:---|:---|---:|---:|---:|---:|\n")
	for _, row := range list.Rows {
		r.Printf("| %s | %s | %s | %s | %d | %s |\n",
			row.ID, cell(row.Name),
			format.Currency(row.CurrentValue, currency),
			format.Currency(row.Total, currency),
			row.Holders,
			format.Percent(row.Allocated))
	}
	return r.String()
}

// AssetDetail renders one asset with the allocations held in it
func AssetDetail(detail *dashboard.AssetDetail, currency string) string {
	r := newRenderer(currency)
	a := detail.Asset

	r.Printf("# %s\n\n", cell(a.Name))
	r.warning(detail.Warning)
	r.Printf("- **Current value:** %s\n", format.Currency(a.CurrentValue, currency))
	r.Printf("- **Allocated:** %s (%s)\n", format.Currency(detail.Total, currency), format.Percent(detail.Allocated))
	r.Printf("- **Holders:** %d\n\n", detail.Holders)

	r.allocations(detail.Allocations, false, true)
	return r.String()
}

// AllocationList renders the allocation table
func AllocationList(list *dashboard.AllocationList, currency string) string {
	r := newRenderer(currency)

	r.Printf("# Allocations\n\n")
	r.warning(list.Warning)
	r.allocations(list.Rows, true, true)
	if len(list.Rows) > 0 {
		r.Printf("\n**Total:** %s\n", format.Currency(list.Total, currency))
	}
	return r.String()
}

func (r *renderer) allocations(rows []dashboard.AllocationRow, showAsset, showClient bool) {
	if len(rows) == 0 {
		r.Printf("No allocations.\n")
		return
	}

	header := []string{"ID"}
	align := []string{":---"}
	if showClient {
		header = append(header, "Client")
		align = append(align, ":---")
	}
	if showAsset {
		header = append(header, "Asset")
		align = append(align, ":---")
	}
	header = append(header, "Amount", "Share")
	align = append(align, "---:", "---:")

	r.Printf("| %s |\n", strings.Join(header, " | "))
	r.Printf("|%s|\n", strings.Join(align, "|"))
	for _, row := range rows {
		cols := []string{row.ID}
		if showClient {
			name := cell(row.ClientName)
			if !row.ClientActive {
				name += " (inactive)"
			}
			cols = append(cols, name)
		}
		if showAsset {
			cols = append(cols, cell(row.AssetName))
		}
		cols = append(cols, format.Currency(row.Amount, r.currency), format.Percent(row.Share))
		r.Printf("| %s |\n", strings.Join(cols, " | "))
	}
}
