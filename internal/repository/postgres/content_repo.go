package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"patro/internal/domain"
	"patro/internal/port"
)

type contentRepo struct {
	db *sqlx.DB
}

// NewContentRepo creates a new PostgreSQL-backed ContentRepository.
func NewContentRepo(db *sqlx.DB) port.ContentRepository {
	return &contentRepo{db: db}
}

// ReplacePageContent swaps the page's entire content set in one transaction:
// existing blocks are deleted (cells and fields cascade) and the new blocks
// with their payloads are inserted.
func (r *contentRepo) ReplacePageContent(ctx context.Context, pageID uuid.UUID, contents []domain.PageContent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("contentRepo.ReplacePageContent begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM content_blocks WHERE page_id = $1", pageID); err != nil {
		return fmt.Errorf("contentRepo.ReplacePageContent delete: %w", err)
	}

	for _, content := range contents {
		b := content.Block
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_blocks (id, page_id, block_index, block_type, text_content, confidence)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			b.ID, b.PageID, b.BlockIndex, b.BlockType, b.Text, b.Confidence); err != nil {
			return fmt.Errorf("contentRepo.ReplacePageContent block: %w", err)
		}

		if err := insertCells(ctx, tx, content.Cells); err != nil {
			return err
		}
		if err := insertFields(ctx, tx, content.Fields); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("contentRepo.ReplacePageContent commit: %w", err)
	}
	return nil
}

func insertCells(ctx context.Context, tx *sqlx.Tx, cells []domain.TableCell) error {
	if len(cells) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(cells))
	valueArgs := make([]interface{}, 0, len(cells)*8)
	for i, c := range cells {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs, c.ID, c.BlockID, c.RowNumber, c.ColumnPath, c.Text, c.RowSpan, c.ColSpan, c.IsHeader)
	}

	query := fmt.Sprintf(
		`INSERT INTO table_cells (id, block_id, row_number, column_path, text_content, rowspan, colspan, is_header) VALUES %s`,
		strings.Join(valueStrings, ", "))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("contentRepo.ReplacePageContent cells: %w", err)
	}
	return nil
}

func insertFields(ctx context.Context, tx *sqlx.Tx, fields []domain.FormField) error {
	if len(fields) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(fields))
	valueArgs := make([]interface{}, 0, len(fields)*8)
	for i, f := range fields {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs, f.ID, f.BlockID, f.FieldOrder, f.Name, f.Label, f.FieldType, f.Value, f.IsFilled)
	}

	query := fmt.Sprintf(
		`INSERT INTO form_fields (id, block_id, field_order, field_name, field_label, field_type, field_value, is_filled) VALUES %s`,
		strings.Join(valueStrings, ", "))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("contentRepo.ReplacePageContent fields: %w", err)
	}
	return nil
}

func (r *contentRepo) ListByPage(ctx context.Context, pageID uuid.UUID) ([]domain.PageContent, error) {
	var blocks []domain.ContentBlock
	err := r.db.SelectContext(ctx, &blocks,
		"SELECT * FROM content_blocks WHERE page_id = $1 ORDER BY block_index", pageID)
	if err != nil {
		return nil, fmt.Errorf("contentRepo.ListByPage blocks: %w", err)
	}

	contents := make([]domain.PageContent, 0, len(blocks))
	for _, block := range blocks {
		content := domain.PageContent{Block: block}

		if block.BlockType == domain.BlockTable {
			cells, err := r.ListCellsByBlock(ctx, block.ID)
			if err != nil {
				return nil, err
			}
			content.Cells = cells
		}

		if block.BlockType == domain.BlockForm {
			var fields []domain.FormField
			err := r.db.SelectContext(ctx, &fields,
				"SELECT * FROM form_fields WHERE block_id = $1 ORDER BY field_order", block.ID)
			if err != nil {
				return nil, fmt.Errorf("contentRepo.ListByPage fields: %w", err)
			}
			content.Fields = fields
		}

		contents = append(contents, content)
	}
	return contents, nil
}

func (r *contentRepo) GetBlock(ctx context.Context, blockID uuid.UUID) (*domain.ContentBlock, error) {
	var block domain.ContentBlock
	err := r.db.GetContext(ctx, &block,
		"SELECT * FROM content_blocks WHERE id = $1", blockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("contentRepo.GetBlock: %w", err)
	}
	return &block, nil
}

func (r *contentRepo) ListCellsByBlock(ctx context.Context, blockID uuid.UUID) ([]domain.TableCell, error) {
	var cells []domain.TableCell
	err := r.db.SelectContext(ctx, &cells,
		"SELECT * FROM table_cells WHERE block_id = $1 ORDER BY row_number, id", blockID)
	if err != nil {
		return nil, fmt.Errorf("contentRepo.ListCellsByBlock: %w", err)
	}
	return cells, nil
}
