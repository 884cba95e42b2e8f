package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msmehub/assetstore/pkg/assetstore"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Registry implements assetstore.Registry using PostgreSQL
type Registry struct {
	db DBTX
}

// New creates a new PostgreSQL registry
func New(db DBTX) assetstore.Registry {
	return &Registry{db: db}
}

// NewWithPool creates a new PostgreSQL registry with a connection pool
func NewWithPool(pool *pgxpool.Pool) assetstore.Registry {
	return &Registry{db: pool}
}

// Error handling helper
func (r *Registry) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: id already exists", assetstore.ErrValidation)
		case "23503": // foreign_key_violation
			return assetstore.ErrAssetNotFound
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", assetstore.ErrValidation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Single-blob assets

func (r *Registry) CreateAsset(ctx context.Context, asset *assetstore.Asset) error {
	query := `
		INSERT INTO asset (
			id, content_type, owner_id, data, entity_type, entity_id, created_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (SELECT 1 FROM chunked_asset WHERE id = $1)`

	var entityType, entityID *string
	if asset.Entity != nil {
		entityType = &asset.Entity.Type
		entityID = &asset.Entity.ID
	}

	tag, err := r.db.Exec(ctx, query,
		asset.ID, asset.ContentType, asset.Owner, asset.Data,
		entityType, entityID, asset.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create asset", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id already exists", assetstore.ErrValidation)
	}

	return nil
}

func (r *Registry) GetAsset(ctx context.Context, id uuid.UUID) (*assetstore.Asset, error) {
	query := `
		SELECT id, content_type, owner_id, data, entity_type, entity_id, created_at
		FROM asset WHERE id = $1`

	var asset assetstore.Asset
	var entityType, entityID *string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&asset.ID, &asset.ContentType, &asset.Owner, &asset.Data,
		&entityType, &entityID, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assetstore.ErrAssetNotFound
		}
		return nil, r.handlePostgresError("get asset", err)
	}

	if entityType != nil && entityID != nil {
		asset.Entity = &assetstore.EntityRef{Type: *entityType, ID: *entityID}
	}

	return &asset, nil
}

// Chunked asset headers

func (r *Registry) CreateChunkedAsset(ctx context.Context, asset *assetstore.ChunkedAsset) error {
	query := `
		INSERT INTO chunked_asset (
			id, content_type, owner_id, total_size, stored_size, sealed,
			entity_type, entity_id, created_at
		)
		SELECT $1, $2, $3, $4, 0, FALSE, $5, $6, $7
		WHERE NOT EXISTS (SELECT 1 FROM asset WHERE id = $1)`

	var entityType, entityID *string
	if asset.Entity != nil {
		entityType = &asset.Entity.Type
		entityID = &asset.Entity.ID
	}

	tag, err := r.db.Exec(ctx, query,
		asset.ID, asset.ContentType, asset.Owner, asset.TotalSize,
		entityType, entityID, asset.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create chunked asset", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id already exists", assetstore.ErrValidation)
	}

	return nil
}

func (r *Registry) GetChunkedAsset(ctx context.Context, id uuid.UUID) (*assetstore.ChunkedAsset, error) {
	query := `
		SELECT id, content_type, owner_id, total_size, stored_size, sealed,
		       sealed_at, checksum, entity_type, entity_id, created_at
		FROM chunked_asset WHERE id = $1`

	asset, err := r.scanChunkedAsset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assetstore.ErrAssetNotFound
		}
		return nil, r.handlePostgresError("get chunked asset", err)
	}

	if err := r.loadChunkIDs(ctx, asset); err != nil {
		return nil, err
	}

	return asset, nil
}

func (r *Registry) AppendChunk(ctx context.Context, assetID, chunkID uuid.UUID, size int64) error {
	// One data-modifying statement, so the chunk-list insert and the
	// stored_size update commit or fail together. A failure mid-append
	// must never leave the header referencing a chunk it did not count.
	query := `
		WITH header AS (
			SELECT id FROM chunked_asset
			WHERE id = $1 AND NOT sealed
			FOR UPDATE
		), appended AS (
			INSERT INTO chunked_asset_chunk (asset_id, seq, chunk_id, size)
			SELECT header.id,
			       COALESCE((SELECT MAX(seq) + 1 FROM chunked_asset_chunk WHERE asset_id = $1), 0),
			       $2, $3
			FROM header
		)
		UPDATE chunked_asset SET stored_size = stored_size + $3
		WHERE id IN (SELECT id FROM header)`

	tag, err := r.db.Exec(ctx, query, assetID, chunkID, size)
	if err != nil {
		return r.handlePostgresError("append chunk", err)
	}
	if tag.RowsAffected() == 0 {
		var sealed bool
		err := r.db.QueryRow(ctx, `SELECT sealed FROM chunked_asset WHERE id = $1`, assetID).Scan(&sealed)
		if errors.Is(err, pgx.ErrNoRows) {
			return assetstore.ErrAssetNotFound
		}
		if err != nil {
			return r.handlePostgresError("append chunk", err)
		}
		return assetstore.ErrSessionSealed
	}

	return nil
}

func (r *Registry) SealChunkedAsset(ctx context.Context, assetID uuid.UUID, checksum string, sealedAt time.Time) error {
	query := `
		UPDATE chunked_asset
		SET sealed = TRUE, sealed_at = $2, checksum = $3
		WHERE id = $1 AND NOT sealed`

	tag, err := r.db.Exec(ctx, query, assetID, sealedAt, checksum)
	if err != nil {
		return r.handlePostgresError("seal chunked asset", err)
	}
	if tag.RowsAffected() == 0 {
		var sealed bool
		err := r.db.QueryRow(ctx, `SELECT sealed FROM chunked_asset WHERE id = $1`, assetID).Scan(&sealed)
		if errors.Is(err, pgx.ErrNoRows) {
			return assetstore.ErrAssetNotFound
		}
		if err != nil {
			return r.handlePostgresError("seal chunked asset", err)
		}
		return assetstore.ErrSessionSealed
	}

	return nil
}

func (r *Registry) DeleteChunkedAsset(ctx context.Context, assetID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM chunked_asset_chunk WHERE asset_id = $1`, assetID); err != nil {
		return r.handlePostgresError("delete chunked asset", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM chunked_asset WHERE id = $1`, assetID)
	if err != nil {
		return r.handlePostgresError("delete chunked asset", err)
	}
	if tag.RowsAffected() == 0 {
		return assetstore.ErrAssetNotFound
	}

	return nil
}

func (r *Registry) ListUnsealedBefore(ctx context.Context, cutoff time.Time) ([]*assetstore.ChunkedAsset, error) {
	query := `
		SELECT id, content_type, owner_id, total_size, stored_size, sealed,
		       sealed_at, checksum, entity_type, entity_id, created_at
		FROM chunked_asset
		WHERE NOT sealed AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, r.handlePostgresError("list unsealed", err)
	}
	defer rows.Close()

	var result []*assetstore.ChunkedAsset
	for rows.Next() {
		asset, err := r.scanChunkedAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list unsealed", err)
	}

	for _, asset := range result {
		if err := r.loadChunkIDs(ctx, asset); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Helpers

func (r *Registry) scanChunkedAsset(row pgx.Row) (*assetstore.ChunkedAsset, error) {
	var asset assetstore.ChunkedAsset
	var sealedAt *time.Time
	var checksum, entityType, entityID *string

	err := row.Scan(
		&asset.ID, &asset.ContentType, &asset.Owner, &asset.TotalSize,
		&asset.StoredSize, &asset.Sealed, &sealedAt, &checksum,
		&entityType, &entityID, &asset.CreatedAt)
	if err != nil {
		return nil, err
	}

	asset.SealedAt = sealedAt
	if checksum != nil {
		asset.Checksum = *checksum
	}
	if entityType != nil && entityID != nil {
		asset.Entity = &assetstore.EntityRef{Type: *entityType, ID: *entityID}
	}

	return &asset, nil
}

func (r *Registry) loadChunkIDs(ctx context.Context, asset *assetstore.ChunkedAsset) error {
	query := `
		SELECT chunk_id FROM chunked_asset_chunk
		WHERE asset_id = $1 ORDER BY seq ASC`

	rows, err := r.db.Query(ctx, query, asset.ID)
	if err != nil {
		return r.handlePostgresError("load chunk ids", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunkID uuid.UUID
		if err := rows.Scan(&chunkID); err != nil {
			return err
		}
		asset.ChunkIDs = append(asset.ChunkIDs, chunkID)
	}

	return rows.Err()
}
