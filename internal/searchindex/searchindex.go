// Package searchindex implements the rebuildable full-text search index
// backing the client-facing search operation: an SQLite FTS5 virtual
// table filled by Upsert and Rebuild from an owner's items, never itself the source of
// truth (it can always be dropped and rebuilt from the item database).
package searchindex

import (
	"context"
	"database/sql"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/types"
)

// Index wraps a single SQLite database file holding one owner's FTS5
// table. Each owner gets its own file so that rebuilding or deleting one
// owner's index never touches another's.
type Index struct {
	db *sql.DB
}

// Open creates or reopens the FTS5 index at path.
func Open(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "opening search index %s", path)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			id UNINDEXED,
			item_type UNINDEXED,
			title,
			text,
			url
		)`); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Io, err, "creating fts5 table in %s", path)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error { return idx.db.Close() }

func searchableFields(item *types.Item) (title, text, url string) {
	if item.Title != nil {
		title = *item.Title
	}
	if item.Text != nil {
		text = *item.Text
	}
	if item.Url != nil {
		url = *item.Url
	}
	return
}

// Upsert indexes or reindexes a single item, replacing any prior row.
func (idx *Index) Upsert(ctx context.Context, item *types.Item) error {
	title, text, url := searchableFields(item)
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM items_fts WHERE id = ?`, item.Id.String()); err != nil {
		return errs.Wrap(errs.Io, err, "clearing prior index row for %s", item.Id)
	}
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO items_fts (id, item_type, title, text, url) VALUES (?, ?, ?, ?, ?)`,
		item.Id.String(), string(item.ItemType), title, text, url)
	if err != nil {
		return errs.Wrap(errs.Io, err, "indexing item %s", item.Id)
	}
	return nil
}

// Remove drops item id from the index.
func (idx *Index) Remove(ctx context.Context, id types.Uid) error {
	_, err := idx.db.ExecContext(ctx, `DELETE FROM items_fts WHERE id = ?`, id.String())
	if err != nil {
		return errs.Wrap(errs.Io, err, "removing %s from index", id)
	}
	return nil
}

// Rebuild clears the index and reindexes every item in items, used after
// a migration or to recover from index corruption since the index is
// always rederivable from the item log.
func (idx *Index) Rebuild(ctx context.Context, items []*types.Item) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.Io, err, "starting rebuild transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items_fts`); err != nil {
		return errs.Wrap(errs.Io, err, "clearing index for rebuild")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items_fts (id, item_type, title, text, url) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errs.Wrap(errs.Io, err, "preparing rebuild statement")
	}
	defer stmt.Close()
	for _, item := range items {
		title, text, url := searchableFields(item)
		if _, err := stmt.ExecContext(ctx, item.Id.String(), string(item.ItemType), title, text, url); err != nil {
			return errs.Wrap(errs.Io, err, "rebuilding index row for %s", item.Id)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Io, err, "committing rebuild transaction")
	}
	return nil
}

// Result is one search hit.
type Result struct {
	Id       types.Uid
	ItemType string
	Rank     float64
}

// Search runs an FTS5 MATCH query over title/text/url and returns up to
// limit results ordered by relevance.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT id, item_type, bm25(items_fts) AS rank FROM items_fts WHERE items_fts MATCH ? ORDER BY rank LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "searching for %q", query)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var id string
		if err := rows.Scan(&id, &r.ItemType, &r.Rank); err != nil {
			return nil, errs.Wrap(errs.Io, err, "scanning search result")
		}
		r.Id = types.Uid(id)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Io, err, "iterating search results")
	}
	return out, nil
}
