package store

import (
	"context"
	"fmt"
	"time"

	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentTableName = "verification_documents"

var documentTableColumns = utils.StructTagValues(types.VerificationDocument{})

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// DocumentByID retrieves a single document by ID
func (r *DocumentRepository) DocumentByID(ctx context.Context, id string) (*types.VerificationDocument, error) {
	query, args, err := psql().
		Select(documentTableColumns...).
		From(documentTableName).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate document query: %w", err)
	}

	var doc = new(types.VerificationDocument)
	err = pgxscan.Get(ctx, r.pool, doc, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return doc, nil
}

// DocumentsByUserID retrieves every document a user uploaded, newest first
func (r *DocumentRepository) DocumentsByUserID(ctx context.Context, userID string) ([]*types.VerificationDocument, error) {
	query, args, err := psql().
		Select(documentTableColumns...).
		From(documentTableName).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("uploaded_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate documents query: %w", err)
	}

	var docs = make([]*types.VerificationDocument, 0)
	err = pgxscan.Select(ctx, r.pool, &docs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	return docs, nil
}

// CreateDocument inserts a new document record
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *types.VerificationDocument) error {
	if doc.ID == "" {
		doc.ID = utils.NanoID()
	}
	doc.UploadedAt = time.Now()

	_, err := exec(ctx, r.pool, psql().
		Insert(documentTableName).
		SetMap(utils.StructToMap(doc)), "create document")
	return err
}

// SetDocumentVerified is the only mutation a document sees after upload.
func (r *DocumentRepository) SetDocumentVerified(ctx context.Context, id string, verified bool) error {
	affected, err := exec(ctx, r.pool, psql().
		Update(documentTableName).
		Set("verified", verified).
		Where(squirrel.Eq{"id": id}), "update document verified flag")
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrDocumentNotFound
	}
	return nil
}
