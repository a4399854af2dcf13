// Package mutation coordinates writes to the entity store: local validation,
// the remote call, and invalidation of the cached reads the write affects.
package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/folio/internal/clients/entitystore"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/validation"
	"github.com/rs/zerolog"
)

// ValidationError carries the field errors of a rejected form.
// Nothing was sent to the entity store.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

// ReferenceSource supplies the clients and assets an allocation may reference
type ReferenceSource interface {
	References(ctx context.Context) (validation.References, error)
}

// Invalidator drops cached reads of resources
type Invalidator interface {
	Invalidate(reason string, resources ...domain.Resource) int
}

// EventEmitter publishes domain events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Coordinator runs every mutation the dashboard offers
type Coordinator struct {
	store  domain.EntityStoreWriter
	refs   ReferenceSource
	cache  Invalidator
	events EventEmitter
	log    zerolog.Logger
}

// NewCoordinator creates a new mutation coordinator. events may be nil.
func NewCoordinator(store domain.EntityStoreWriter, refs ReferenceSource, cache Invalidator, emitter EventEmitter, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		refs:   refs,
		cache:  cache,
		events: emitter,
		log:    log.With().Str("service", "mutation").Logger(),
	}
}

// CreateClient validates and creates a client
func (c *Coordinator) CreateClient(ctx context.Context, form validation.ClientForm) (domain.Client, error) {
	input, errs := validation.ValidateClient(form)
	if !errs.Empty() {
		return domain.Client{}, &ValidationError{Fields: errs}
	}

	client, err := c.store.CreateClient(ctx, input)
	if err := c.settle(OpCreateClient, err); err != nil {
		return domain.Client{}, err
	}

	c.emit(events.ClientCreated, domain.ResourceClients, client.ID, client.Name)
	return client, nil
}

// UpdateClient validates and updates a client
func (c *Coordinator) UpdateClient(ctx context.Context, id string, form validation.ClientForm) (domain.Client, error) {
	if err := requireID(id); err != nil {
		return domain.Client{}, err
	}
	input, errs := validation.ValidateClient(form)
	if !errs.Empty() {
		return domain.Client{}, &ValidationError{Fields: errs}
	}

	client, err := c.store.UpdateClient(ctx, id, input)
	if err := c.settle(OpUpdateClient, err); err != nil {
		return domain.Client{}, err
	}

	c.emit(events.ClientUpdated, domain.ResourceClients, client.ID, client.Name)
	return client, nil
}

// SetClientStatus activates or deactivates a client.
// Existing allocations of the client are left untouched.
func (c *Coordinator) SetClientStatus(ctx context.Context, id, status string) (domain.Client, error) {
	if err := requireID(id); err != nil {
		return domain.Client{}, err
	}
	parsed, errs := validation.ValidateStatus(status)
	if !errs.Empty() {
		return domain.Client{}, &ValidationError{Fields: errs}
	}

	client, err := c.store.UpdateClientStatus(ctx, id, parsed)
	if err := c.settle(OpSetClientStatus, err); err != nil {
		return domain.Client{}, err
	}

	c.emit(events.ClientStatusChanged, domain.ResourceClients, client.ID, client.Name)
	return client, nil
}

// CreateAsset validates and creates an asset
func (c *Coordinator) CreateAsset(ctx context.Context, form validation.AssetForm) (domain.Asset, error) {
	input, errs := validation.ValidateAsset(form)
	if !errs.Empty() {
		return domain.Asset{}, &ValidationError{Fields: errs}
	}

	asset, err := c.store.CreateAsset(ctx, input)
	if err := c.settle(OpCreateAsset, err); err != nil {
		return domain.Asset{}, err
	}

	c.emit(events.AssetCreated, domain.ResourceAssets, asset.ID, asset.Name)
	return asset, nil
}

// UpdateAsset validates and updates an asset
func (c *Coordinator) UpdateAsset(ctx context.Context, id string, form validation.AssetForm) (domain.Asset, error) {
	if err := requireID(id); err != nil {
		return domain.Asset{}, err
	}
	input, errs := validation.ValidateAsset(form)
	if !errs.Empty() {
		return domain.Asset{}, &ValidationError{Fields: errs}
	}

	asset, err := c.store.UpdateAsset(ctx, id, input)
	if err := c.settle(OpUpdateAsset, err); err != nil {
		return domain.Asset{}, err
	}

	c.emit(events.AssetUpdated, domain.ResourceAssets, asset.ID, asset.Name)
	return asset, nil
}

// CreateAllocation validates the form against the current clients and
// assets, then creates the allocation.
func (c *Coordinator) CreateAllocation(ctx context.Context, form validation.AllocationForm) (domain.Allocation, error) {
	refs, err := c.refs.References(ctx)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("failed to load allocation references: %w", err)
	}

	input, errs := validation.ValidateAllocation(form, refs)
	if !errs.Empty() {
		return domain.Allocation{}, &ValidationError{Fields: errs}
	}

	allocation, err := c.store.CreateAllocation(ctx, input)
	if err := c.settle(OpCreateAllocation, err); err != nil {
		return domain.Allocation{}, err
	}

	c.emit(events.AllocationCreated, domain.ResourceAllocations, allocation.ID, "")
	return allocation, nil
}

// DeleteAllocation removes an allocation
func (c *Coordinator) DeleteAllocation(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}

	err := c.store.DeleteAllocation(ctx, id)
	if err := c.settle(OpDeleteAllocation, err); err != nil {
		return err
	}

	c.emit(events.AllocationDeleted, domain.ResourceAllocations, id, "")
	return nil
}

// settle applies the invalidation contract to the outcome of a remote call.
// Success and ambiguous failures invalidate the declared resources; a
// definite rejection leaves the cache alone.
func (c *Coordinator) settle(op Operation, err error) error {
	reason := strings.ReplaceAll(string(op), "_", " ")

	if err == nil {
		c.cache.Invalidate(reason, InvalidatedBy(op)...)
		return nil
	}

	if entitystore.IsAmbiguous(err) {
		c.log.Warn().Err(err).Str("operation", string(op)).Msg("Mutation outcome unknown, invalidating")
		c.cache.Invalidate(reason+" failed", InvalidatedBy(op)...)
	} else {
		c.log.Info().Err(err).Str("operation", string(op)).Msg("Mutation rejected by entity store")
	}
	return err
}

func (c *Coordinator) emit(eventType events.EventType, resource domain.Resource, id, name string) {
	if c.events == nil {
		return
	}
	c.events.EmitTyped("mutation", &events.EntityData{
		Type:     eventType,
		Resource: string(resource),
		ID:       id,
		Name:     name,
	})
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Fields: validation.FieldErrors{"id": validation.MsgRequired}}
	}
	return nil
}
