package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements mediaresolve.Repository using PostgreSQL.
//
// The video_asset table carries a partial unique index on
// external_processor_asset_id (nulls excluded); that index is the
// storage-level arbiter the registration resolver races against.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// mapError translates pgx/pgconn errors into the domain taxonomy: unique
// violations become ErrDuplicateExternalID, missing rows become
// ErrAssetNotFound, and anything that looks like connectivity trouble is
// surfaced as retryable ErrStorageUnavailable.
func mapError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", operation, mediaresolve.ErrDuplicateExternalID)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required field %s is missing", operation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required", operation)
		default:
			return fmt.Errorf("%s: database error %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return mediaresolve.ErrAssetNotFound
	}

	// Non-protocol errors from pgx are connection-level: dial failures,
	// broken pipes, pool exhaustion.
	return fmt.Errorf("%s: %v: %w", operation, err, mediaresolve.ErrStorageUnavailable)
}

func (r *Repository) CreateAsset(ctx context.Context, asset *mediaresolve.VideoAsset) error {
	refs, thumb, err := marshalReferences(asset)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO video_asset (
			id, external_processor_asset_id, title, upload_key, original_filename,
			storage_references, thumbnail, processing_state, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		asset.ID, nullableText(asset.ExternalProcessorAssetID), asset.Title,
		asset.UploadKey, asset.OriginalFilename, refs, thumb,
		string(asset.ProcessingState), asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return mapError("create asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediaresolve.VideoAsset, error) {
	query := selectColumns + ` WHERE id = $1`
	return r.scanAsset(r.db.QueryRow(ctx, query, id), "get asset")
}

func (r *Repository) GetAssetByExternalID(ctx context.Context, externalID string) (*mediaresolve.VideoAsset, error) {
	query := selectColumns + ` WHERE external_processor_asset_id = $1`
	return r.scanAsset(r.db.QueryRow(ctx, query, externalID), "get asset by external id")
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *mediaresolve.VideoAsset) error {
	refs, thumb, err := marshalReferences(asset)
	if err != nil {
		return err
	}

	query := `
		UPDATE video_asset SET
			title = $2, upload_key = $3, original_filename = $4,
			storage_references = $5, thumbnail = $6, processing_state = $7,
			updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		asset.ID, asset.Title, asset.UploadKey, asset.OriginalFilename,
		refs, thumb, string(asset.ProcessingState), asset.UpdatedAt)
	if err != nil {
		return mapError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return mediaresolve.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ListAssetsByState(ctx context.Context, state mediaresolve.ProcessingState) ([]*mediaresolve.VideoAsset, error) {
	query := selectColumns + ` WHERE processing_state = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, string(state))
	if err != nil {
		return nil, mapError("list assets by state", err)
	}
	defer rows.Close()

	var result []*mediaresolve.VideoAsset
	for rows.Next() {
		asset, err := r.scanAsset(rows, "list assets by state")
		if err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list assets by state", err)
	}
	return result, nil
}

const selectColumns = `
	SELECT id, external_processor_asset_id, title, upload_key, original_filename,
	       storage_references, thumbnail, processing_state, created_at, updated_at
	FROM video_asset`

func (r *Repository) scanAsset(row pgx.Row, operation string) (*mediaresolve.VideoAsset, error) {
	var (
		asset      mediaresolve.VideoAsset
		externalID *string
		refsJSON   []byte
		thumbJSON  []byte
		state      string
	)
	err := row.Scan(
		&asset.ID, &externalID, &asset.Title, &asset.UploadKey,
		&asset.OriginalFilename, &refsJSON, &thumbJSON, &state,
		&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return nil, mapError(operation, err)
	}

	if externalID != nil {
		asset.ExternalProcessorAssetID = *externalID
	}
	asset.ProcessingState = mediaresolve.ProcessingState(state)
	if len(refsJSON) > 0 {
		if err := json.Unmarshal(refsJSON, &asset.StorageReferences); err != nil {
			return nil, fmt.Errorf("%s: decode storage references: %w", operation, err)
		}
	}
	if len(thumbJSON) > 0 {
		var thumb mediaresolve.ThumbnailReference
		if err := json.Unmarshal(thumbJSON, &thumb); err != nil {
			return nil, fmt.Errorf("%s: decode thumbnail: %w", operation, err)
		}
		asset.Thumbnail = &thumb
	}
	return &asset, nil
}

func marshalReferences(asset *mediaresolve.VideoAsset) (refs []byte, thumb []byte, err error) {
	refs, err = json.Marshal(asset.StorageReferences)
	if err != nil {
		return nil, nil, fmt.Errorf("encode storage references: %w", err)
	}
	if asset.Thumbnail != nil {
		thumb, err = json.Marshal(asset.Thumbnail)
		if err != nil {
			return nil, nil, fmt.Errorf("encode thumbnail: %w", err)
		}
	}
	return refs, thumb, nil
}

// nullableText maps the empty string to SQL NULL so the partial unique
// index on external_processor_asset_id only constrains real ids.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
