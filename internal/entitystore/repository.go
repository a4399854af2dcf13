package entitystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/validation"
)

// Repository persists clients, assets and allocations in SQLite
type Repository struct {
	db    *sql.DB
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewRepository creates a repository over an open entity store database
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:    db,
		log:   log.With().Str("repo", "entitystore").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

const (
	clientColumns = `id, name, email, status, created_at`
	assetColumns  = `id, name, current_value, created_at`
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row scanner) (domain.Client, error) {
	var c domain.Client
	var status, createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &status, &createdAt); err != nil {
		return domain.Client{}, err
	}
	c.Status = domain.ClientStatus(status)
	t, err := parseTime(createdAt)
	if err != nil {
		return domain.Client{}, err
	}
	c.CreatedAt = t
	return c, nil
}

func scanAsset(row scanner) (domain.Asset, error) {
	var a domain.Asset
	var value, createdAt string
	if err := row.Scan(&a.ID, &a.Name, &value, &createdAt); err != nil {
		return domain.Asset{}, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("invalid current value %q: %w", value, err)
	}
	a.CurrentValue = v
	t, err := parseTime(createdAt)
	if err != nil {
		return domain.Asset{}, err
	}
	a.CreatedAt = t
	return a, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// timeLayout keeps every fraction digit so created_at sorts as text in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ListClients returns every client in creation order
func (r *Repository) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

// GetClient returns one client or a NotFoundError
func (r *Repository) GetClient(ctx context.Context, id string) (domain.Client, error) {
	return getClient(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getClient(ctx context.Context, q querier, id string) (domain.Client, error) {
	c, err := scanClient(q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, notFound("client", id)
	}
	if err != nil {
		return domain.Client{}, fmt.Errorf("failed to get client %s: %w", id, err)
	}
	return c, nil
}

// CreateClient validates and inserts a client
func (r *Repository) CreateClient(ctx context.Context, in domain.ClientInput) (domain.Client, error) {
	in, err := checkClient(in)
	if err != nil {
		return domain.Client{}, err
	}

	c := domain.Client{
		ID:        r.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Status:    in.Status,
		CreatedAt: r.now(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, email, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, string(c.Status), formatTime(c.CreatedAt))
	if err != nil {
		return domain.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}

	r.log.Debug().Str("id", c.ID).Msg("Client created")
	return c, nil
}

// UpdateClient replaces the editable fields of a client
func (r *Repository) UpdateClient(ctx context.Context, id string, in domain.ClientInput) (domain.Client, error) {
	in, err := checkClient(in)
	if err != nil {
		return domain.Client{}, err
	}

	var updated domain.Client
	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE clients SET name = ?, email = ?, status = ? WHERE id = ?`,
			in.Name, in.Email, string(in.Status), id)
		if err := affected(res, err, "client", id); err != nil {
			return err
		}
		updated, err = getClient(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Client{}, unwrapTx(err)
	}
	return updated, nil
}

// UpdateClientStatus changes only the status of a client
func (r *Repository) UpdateClientStatus(ctx context.Context, id string, status domain.ClientStatus) (domain.Client, error) {
	if !status.Valid() {
		return domain.Client{}, invalid(validation.FieldErrors{"status": "must be one of: active, inactive"})
	}

	var updated domain.Client
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE clients SET status = ? WHERE id = ?`, string(status), id)
		if err := affected(res, err, "client", id); err != nil {
			return err
		}
		updated, err = getClient(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Client{}, unwrapTx(err)
	}
	return updated, nil
}

// ListAssets returns every asset in creation order
func (r *Repository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := []domain.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns one asset or a NotFoundError
func (r *Repository) GetAsset(ctx context.Context, id string) (domain.Asset, error) {
	return getAsset(ctx, r.db, id)
}

func getAsset(ctx context.Context, q querier, id string) (domain.Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Asset{}, notFound("asset", id)
	}
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return a, nil
}

// CreateAsset validates and inserts an asset
func (r *Repository) CreateAsset(ctx context.Context, in domain.AssetInput) (domain.Asset, error) {
	in, err := checkAsset(in)
	if err != nil {
		return domain.Asset{}, err
	}

	a := domain.Asset{
		ID:           r.newID(),
		Name:         in.Name,
		CurrentValue: in.CurrentValue,
		CreatedAt:    r.now(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO assets (id, name, current_value, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.CurrentValue.String(), formatTime(a.CreatedAt))
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to insert asset: %w", err)
	}

	r.log.Debug().Str("id", a.ID).Msg("Asset created")
	return a, nil
}

// UpdateAsset replaces the name and current value of an asset
func (r *Repository) UpdateAsset(ctx context.Context, id string, in domain.AssetInput) (domain.Asset, error) {
	in, err := checkAsset(in)
	if err != nil {
		return domain.Asset{}, err
	}

	var updated domain.Asset
	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE assets SET name = ?, current_value = ? WHERE id = ?`,
			in.Name, in.CurrentValue.String(), id)
		if err := affected(res, err, "asset", id); err != nil {
			return err
		}
		updated, err = getAsset(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Asset{}, unwrapTx(err)
	}
	return updated, nil
}

// ListAllocations returns every allocation with its client and asset embedded
// when they resolve
func (r *Repository) ListAllocations(ctx context.Context) ([]domain.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT al.id, al.client_id, al.asset_id, al.amount, al.created_at,
		       c.id, c.name, c.email, c.status, c.created_at,
		       a.id, a.name, a.current_value, a.created_at
		FROM allocations al
		LEFT JOIN clients c ON c.id = al.client_id
		LEFT JOIN assets a ON a.id = al.asset_id
		ORDER BY al.created_at, al.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	allocations := []domain.Allocation{}
	for rows.Next() {
		alloc, err := scanJoinedAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, alloc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}
	return allocations, nil
}

func scanJoinedAllocation(row scanner) (domain.Allocation, error) {
	var alloc domain.Allocation
	var amount, createdAt string
	var cID, cName, cEmail, cStatus, cCreated sql.NullString
	var aID, aName, aValue, aCreated sql.NullString

	err := row.Scan(
		&alloc.ID, &alloc.ClientID, &alloc.AssetID, &amount, &createdAt,
		&cID, &cName, &cEmail, &cStatus, &cCreated,
		&aID, &aName, &aValue, &aCreated,
	)
	if err != nil {
		return domain.Allocation{}, err
	}

	if alloc.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Allocation{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if alloc.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Allocation{}, err
	}

	if cID.Valid {
		created, err := parseTime(cCreated.String)
		if err != nil {
			return domain.Allocation{}, err
		}
		alloc.Client = domain.Some(domain.Client{
			ID:        cID.String,
			Name:      cName.String,
			Email:     cEmail.String,
			Status:    domain.ClientStatus(cStatus.String),
			CreatedAt: created,
		})
	}
	if aID.Valid {
		value, err := decimal.NewFromString(aValue.String)
		if err != nil {
			return domain.Allocation{}, fmt.Errorf("invalid current value %q: %w", aValue.String, err)
		}
		created, err := parseTime(aCreated.String)
		if err != nil {
			return domain.Allocation{}, err
		}
		alloc.Asset = domain.Some(domain.Asset{
			ID:           aID.String,
			Name:         aName.String,
			CurrentValue: value,
			CreatedAt:    created,
		})
	}
	return alloc, nil
}

// CreateAllocation inserts an allocation after checking, in the same
// transaction, that its client exists and is active and that its asset exists
func (r *Repository) CreateAllocation(ctx context.Context, in domain.AllocationInput) (domain.Allocation, error) {
	var created domain.Allocation
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		refs := validation.References{
			Clients: map[string]domain.Client{},
			Assets:  map[string]domain.Asset{},
		}
		client, err := getClient(ctx, tx, in.ClientID)
		switch {
		case err == nil:
			refs.Clients[client.ID] = client
		case !errors.Is(err, ErrNotFound):
			return err
		}
		asset, err := getAsset(ctx, tx, in.AssetID)
		switch {
		case err == nil:
			refs.Assets[asset.ID] = asset
		case !errors.Is(err, ErrNotFound):
			return err
		}

		checked, fields := validation.ValidateAllocation(validation.AllocationForm{
			ClientID: in.ClientID,
			AssetID:  in.AssetID,
			Amount:   in.Amount.String(),
		}, refs)
		if !fields.Empty() {
			return invalid(fields)
		}

		created = domain.Allocation{
			ID:        r.newID(),
			ClientID:  checked.ClientID,
			AssetID:   checked.AssetID,
			Amount:    checked.Amount,
			CreatedAt: r.now(),
			Client:    domain.Some(client),
			Asset:     domain.Some(asset),
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO allocations (id, client_id, asset_id, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
			created.ID, created.ClientID, created.AssetID, created.Amount.String(), formatTime(created.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Allocation{}, unwrapTx(err)
	}

	r.log.Debug().Str("id", created.ID).Str("client_id", created.ClientID).Str("asset_id", created.AssetID).Msg("Allocation created")
	return created, nil
}

// DeleteAllocation removes an allocation by id
func (r *Repository) DeleteAllocation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM allocations WHERE id = ?`, id)
	return affected(res, err, "allocation", id)
}

// affected turns an UPDATE/DELETE result that touched no row into a NotFoundError
func affected(res sql.Result, err error, resource, id string) error {
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound(resource, id)
	}
	return nil
}

// unwrapTx surfaces typed errors from inside a transaction so handlers can
// branch on them without the transaction wrapper text
func unwrapTx(err error) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf
	}
	var in *InputError
	if errors.As(err, &in) {
		return in
	}
	return err
}

func checkClient(in domain.ClientInput) (domain.ClientInput, error) {
	checked, fields := validation.ValidateClient(validation.ClientForm{
		Name:   in.Name,
		Email:  in.Email,
		Status: string(in.Status),
	})
	if !fields.Empty() {
		return domain.ClientInput{}, invalid(fields)
	}
	return checked, nil
}

func checkAsset(in domain.AssetInput) (domain.AssetInput, error) {
	checked, fields := validation.ValidateAsset(validation.AssetForm{
		Name:         in.Name,
		CurrentValue: in.CurrentValue.String(),
	})
	if !fields.Empty() {
		return domain.AssetInput{}, invalid(fields)
	}
	return checked, nil
}
