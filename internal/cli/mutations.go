package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/format"
	"github.com/aristath/folio/internal/validation"
)

type addClientCmd struct {
	app    *App
	name   string
	email  string
	status string
}

func (*addClientCmd) Name() string     { return "add-client" }
func (*addClientCmd) Synopsis() string { return "create a client" }
func (*addClientCmd) Usage() string {
	return `folio add-client -name <name> -email <email> [-status active|inactive]
`
}

func (c *addClientCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Client name (at least 2 characters).")
	f.StringVar(&c.email, "email", "", "Client email address.")
	f.StringVar(&c.status, "status", "", "Client status (active, inactive). Defaults to active.")
}

func (c *addClientCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	client, err := container.Coordinator.CreateClient(ctx, validation.ClientForm{
		Name:   c.name,
		Email:  c.email,
		Status: c.status,
	})
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Created client %s (%s)\n", client.Name, client.ID)
	return subcommands.ExitSuccess
}

type updateClientCmd struct {
	app    *App
	name   string
	email  string
	status string
}

func (*updateClientCmd) Name() string     { return "update-client" }
func (*updateClientCmd) Synopsis() string { return "replace the details of a client" }
func (*updateClientCmd) Usage() string {
	return `folio update-client -name <name> -email <email> [-status active|inactive] <client-id>

  Every field is replaced: omitted fields are validated as empty.
`
}

func (c *updateClientCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Client name (at least 2 characters).")
	f.StringVar(&c.email, "email", "", "Client email address.")
	f.StringVar(&c.status, "status", "", "Client status (active, inactive). Defaults to active.")
}

func (c *updateClientCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "update-client expects exactly one client id")
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	client, err := container.Coordinator.UpdateClient(ctx, f.Arg(0), validation.ClientForm{
		Name:   c.name,
		Email:  c.email,
		Status: c.status,
	})
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Updated client %s (%s)\n", client.Name, client.ID)
	return subcommands.ExitSuccess
}

type setStatusCmd struct {
	app *App
}

func (*setStatusCmd) Name() string     { return "set-status" }
func (*setStatusCmd) Synopsis() string { return "activate or deactivate a client" }
func (*setStatusCmd) Usage() string {
	return `folio set-status <client-id> active|inactive

  Inactive clients keep their allocations but cannot receive new ones.
`
}
func (*setStatusCmd) SetFlags(*flag.FlagSet) {}

func (c *setStatusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.app.usage(f, "set-status expects a client id and a status")
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	client, err := container.Coordinator.SetClientStatus(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Client %s is now %s\n", client.Name, client.Status)
	return subcommands.ExitSuccess
}

type addAssetCmd struct {
	app   *App
	name  string
	value string
}

func (*addAssetCmd) Name() string     { return "add-asset" }
func (*addAssetCmd) Synopsis() string { return "create an asset" }
func (*addAssetCmd) Usage() string {
	return `folio add-asset -name <name> -value <current-value>
`
}

func (c *addAssetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Asset name (at least 2 characters).")
	f.StringVar(&c.value, "value", "", "Current value of the asset, greater than 0.")
}

func (c *addAssetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	asset, err := container.Coordinator.CreateAsset(ctx, validation.AssetForm{
		Name:         c.name,
		CurrentValue: c.value,
	})
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Created asset %s (%s) valued at %s\n",
		asset.Name, asset.ID, format.Currency(asset.CurrentValue, c.app.currency()))
	return subcommands.ExitSuccess
}

type updateAssetCmd struct {
	app   *App
	name  string
	value string
}

func (*updateAssetCmd) Name() string     { return "update-asset" }
func (*updateAssetCmd) Synopsis() string { return "replace the details of an asset" }
func (*updateAssetCmd) Usage() string {
	return `folio update-asset -name <name> -value <current-value> <asset-id>
`
}

func (c *updateAssetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Asset name (at least 2 characters).")
	f.StringVar(&c.value, "value", "", "Current value of the asset, greater than 0.")
}

func (c *updateAssetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "update-asset expects exactly one asset id")
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	asset, err := container.Coordinator.UpdateAsset(ctx, f.Arg(0), validation.AssetForm{
		Name:         c.name,
		CurrentValue: c.value,
	})
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Updated asset %s (%s) valued at %s\n",
		asset.Name, asset.ID, format.Currency(asset.CurrentValue, c.app.currency()))
	return subcommands.ExitSuccess
}

type allocateCmd struct {
	app      *App
	clientID string
	assetID  string
	amount   string
}

func (*allocateCmd) Name() string     { return "allocate" }
func (*allocateCmd) Synopsis() string { return "allocate an amount of an asset to a client" }
func (*allocateCmd) Usage() string {
	return `folio allocate -client <client-id> -asset <asset-id> -amount <amount>

  The client must exist and be active, the asset must exist, and the amount
  must be greater than 0.
`
}

func (c *allocateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.clientID, "client", "", "Client receiving the allocation.")
	f.StringVar(&c.assetID, "asset", "", "Asset being allocated.")
	f.StringVar(&c.amount, "amount", "", "Allocated amount, greater than 0.")
}

func (c *allocateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	allocation, err := container.Coordinator.CreateAllocation(ctx, validation.AllocationForm{
		ClientID: c.clientID,
		AssetID:  c.assetID,
		Amount:   c.amount,
	})
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Created allocation %s of %s\n",
		allocation.ID, format.Currency(allocation.Amount, c.app.currency()))
	return subcommands.ExitSuccess
}

type deallocateCmd struct {
	app *App
}

func (*deallocateCmd) Name() string     { return "deallocate" }
func (*deallocateCmd) Synopsis() string { return "delete an allocation" }
func (*deallocateCmd) Usage() string {
	return `folio deallocate <allocation-id>
`
}
func (*deallocateCmd) SetFlags(*flag.FlagSet) {}

func (c *deallocateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "deallocate expects exactly one allocation id")
	}

	container, err := c.app.services()
	if err != nil {
		return c.app.fail(err)
	}
	if err := container.Coordinator.DeleteAllocation(ctx, f.Arg(0)); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "Deleted allocation %s\n", f.Arg(0))
	return subcommands.ExitSuccess
}
