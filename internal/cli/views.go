package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/dashboard"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/report"
)

type overviewCmd struct {
	app *App
}

func (*overviewCmd) Name() string     { return "overview" }
func (*overviewCmd) Synopsis() string { return "display totals and the largest clients and assets" }
func (*overviewCmd) Usage() string {
	return `folio overview

  Displays the number of clients, assets and allocations, the total
  allocated amount, and the top clients and assets by allocated amount.
`
}
func (*overviewCmd) SetFlags(*flag.FlagSet) {}

func (c *overviewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	overview, err := container.Dashboard.Overview(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.printMarkdown(report.Overview(overview, c.app.currency()))
}

type clientsCmd struct {
	app    *App
	search string
	status string
}

func (*clientsCmd) Name() string     { return "clients" }
func (*clientsCmd) Synopsis() string { return "list clients with their allocated totals" }
func (*clientsCmd) Usage() string {
	return `folio clients [-search <text>] [-status active|inactive]

  Lists clients, optionally filtered by a case-insensitive search on name
  or email and by status.
`
}

func (c *clientsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "search", "", "Only list clients whose name or email contains this text.")
	f.StringVar(&c.status, "status", "", "Only list clients with this status (active, inactive).")
}

func (c *clientsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter := dashboard.ClientFilter{Search: c.search}
	if c.status != "" {
		status, err := domain.ParseClientStatus(c.status)
		if err != nil {
			return c.app.usage(f, "%v", err)
		}
		filter.Status = status
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	list, err := container.Dashboard.ClientList(ctx, filter)
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.printMarkdown(report.ClientList(list, c.app.currency()))
}

type clientCmd struct {
	app *App
}

func (*clientCmd) Name() string     { return "client" }
func (*clientCmd) Synopsis() string { return "display one client and its holdings" }
func (*clientCmd) Usage() string {
	return `folio client <client-id>
`
}
func (*clientCmd) SetFlags(*flag.FlagSet) {}

func (c *clientCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "client expects exactly one client id")
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	detail, err := container.Dashboard.ClientDetail(ctx, f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.printMarkdown(report.ClientDetail(detail, c.app.currency()))
}

type assetsCmd struct {
	app    *App
	search string
}

func (*assetsCmd) Name() string     { return "assets" }
func (*assetsCmd) Synopsis() string { return "list assets with their allocated totals" }
func (*assetsCmd) Usage() string {
	return `folio assets [-search <text>]
`
}

func (c *assetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "search", "", "Only list assets whose name contains this text.")
}

func (c *assetsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	list, err := container.Dashboard.AssetList(ctx, dashboard.AssetFilter{Search: c.search})
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.printMarkdown(report.AssetList(list, c.app.currency()))
}

type assetCmd struct {
	app *App
}

func (*assetCmd) Name() string     { return "asset" }
func (*assetCmd) Synopsis() string { return "display one asset and who holds it" }
func (*assetCmd) Usage() string {
	return `folio asset <asset-id>
`
}
func (*assetCmd) SetFlags(*flag.FlagSet) {}

func (c *assetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "asset expects exactly one asset id")
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	detail, err := container.Dashboard.AssetDetail(ctx, f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.printMarkdown(report.AssetDetail(detail, c.app.currency()))
}

type allocationsCmd struct {
	app      *App
	clientID string
	assetID  string
}

func (*allocationsCmd) Name() string     { return "allocations" }
func (*allocationsCmd) Synopsis() string { return "list allocations" }
func (*allocationsCmd) Usage() string {
	return `folio allocations [-client <client-id>] [-asset <asset-id>]

  Lists the allocations whose client and asset both resolve. Allocations
  with a missing client or asset are counted but not shown.
`
}

func (c *allocationsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.clientID, "client", "", "Only list allocations of this client.")
	f.StringVar(&c.assetID, "asset", "", "Only list allocations in this asset.")
}

func (c *allocationsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	list, err := container.Dashboard.AllocationList(ctx, dashboard.AllocationFilter{
		ClientID: c.clientID,
		AssetID:  c.assetID,
	})
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.printMarkdown(report.AllocationList(list, c.app.currency()))
}
