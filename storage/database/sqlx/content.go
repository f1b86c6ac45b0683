package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/storage/database"
)

// itemBodyColumns holds the type specific column of each item table, read and written as "body".
var itemBodyColumns = map[content.ItemType]string{
	content.TypeText:  "content",
	content.TypeVideo: "url",
	content.TypeImage: "file",
	content.TypeFile:  "file",
}

type (
	itemRow struct {
		ID        string    `db:"id"`
		OwnerID   string    `db:"owner_id"`
		Title     string    `db:"title"`
		Body      string    `db:"body"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	contentRow struct {
		ID       string           `db:"id"`
		ModuleID string           `db:"module_id"`
		ItemType content.ItemType `db:"item_type"`
		ItemID   string           `db:"item_id"`
		Order    int              `db:"order"`
	}
)

func toItemRow(item content.Item) itemRow {
	base := item.Base()
	row := itemRow{
		ID:        base.ID,
		OwnerID:   base.OwnerID,
		Title:     base.Title,
		CreatedAt: base.CreatedAt.UTC(),
		UpdatedAt: base.UpdatedAt.UTC(),
	}
	switch it := item.(type) {
	case *content.Text:
		row.Body = it.Content
	case *content.Video:
		row.Body = it.URL
	case *content.Image:
		row.Body = it.File
	case *content.File:
		row.Body = it.File
	}
	return row
}

func (row itemRow) toItem(t content.ItemType) content.Item {
	base := content.ItemBase{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	switch t {
	case content.TypeText:
		return &content.Text{ItemBase: base, Content: row.Body}
	case content.TypeVideo:
		return &content.Video{ItemBase: base, URL: row.Body}
	case content.TypeImage:
		return &content.Image{ItemBase: base, File: row.Body}
	case content.TypeFile:
		return &content.File{ItemBase: base, File: row.Body}
	}
	return nil
}

func (row contentRow) toContent(item content.Item) content.Content {
	return content.Content{
		ID:       row.ID,
		ModuleID: row.ModuleID,
		Order:    row.Order,
		ItemType: row.ItemType,
		ItemID:   row.ItemID,
		Item:     item,
	}
}

func itemTable(t content.ItemType) (string, string, error) {
	col, ok := itemBodyColumns[t]
	if !ok {
		return "", "", content.ErrUnknownItemType
	}
	return "item_" + string(t), col, nil
}

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{db: db}
}

// Items

func (repo *contentRepository) CreateItem(ctx context.Context, item content.Item) (content.Item, error) {
	table, col, err := itemTable(item.Type())
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, owner_id, title, %s, created_at, updated_at)
		VALUES (:id, :owner_id, :title, :body, :created_at, :updated_at)`, table, col)
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, toItemRow(item)); err != nil {
		return nil, errors.Wrap(err, "inserting item")
	}
	return item, nil
}

func (repo *contentRepository) GetItem(ctx context.Context, t content.ItemType, id string) (content.Item, error) {
	items, err := repo.queryItems(ctx, t, []string{id})
	if err != nil {
		return nil, err
	}
	item, ok := items[id]
	if !ok {
		return nil, content.ErrItemNotFound
	}
	return item, nil
}

// queryItems returns the items of type t with the given ids, by id.
func (repo *contentRepository) queryItems(ctx context.Context, t content.ItemType, ids []string) (map[string]content.Item, error) {
	table, col, err := itemTable(t)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return map[string]content.Item{}, nil
	}
	q, args, err := sqlx.In(
		fmt.Sprintf(`SELECT id, owner_id, title, %s AS body, created_at, updated_at FROM %s WHERE id IN (?)`, col, table),
		ids,
	)
	if err != nil {
		return nil, errors.Wrap(err, "building item query")
	}

	exec := database.Executor(ctx, repo.db)
	var rows []itemRow
	if err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying items")
	}
	items := make(map[string]content.Item, len(rows))
	for _, row := range rows {
		items[row.ID] = row.toItem(t)
	}
	return items, nil
}

func (repo *contentRepository) UpdateItem(ctx context.Context, item content.Item) (content.Item, error) {
	table, col, err := itemTable(item.Type())
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`UPDATE %s SET title = :title, %s = :body, updated_at = :updated_at WHERE id = :id`, table, col)
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, toItemRow(item))
	if err != nil {
		return nil, errors.Wrap(err, "updating item")
	}
	if err := checkAffected(res, content.ErrItemNotFound); err != nil {
		return nil, err
	}
	return item, nil
}

// Contents

func (repo *contentRepository) CreateContent(ctx context.Context, cnt content.Content) (content.Content, error) {
	exec := database.Executor(ctx, repo.db)
	if cnt.Order == content.AutoOrder {
		q := `SELECT COALESCE(MAX("order") + 1, 0) FROM content WHERE module_id = $1`
		if err := sqlx.GetContext(ctx, exec, &cnt.Order, q, cnt.ModuleID); err != nil {
			return content.Content{}, errors.Wrap(err, "computing content order")
		}
	}

	q := `INSERT INTO content (id, module_id, item_type, item_id, "order")
		VALUES (:id, :module_id, :item_type, :item_id, :order)`
	row := contentRow{ID: cnt.ID, ModuleID: cnt.ModuleID, ItemType: cnt.ItemType, ItemID: cnt.ItemID, Order: cnt.Order}
	if _, err := sqlx.NamedExecContext(ctx, exec, q, row); err != nil {
		return content.Content{}, errors.Wrap(err, "inserting content")
	}
	return cnt, nil
}

func (repo *contentRepository) GetContent(ctx context.Context, filter content.Filter) (content.Content, error) {
	var where []string
	var args []interface{}
	if filter.ID != "" {
		where = append(where, "c.id = ?")
		args = append(args, filter.ID)
	}
	if filter.ModuleID != "" {
		where = append(where, "c.module_id = ?")
		args = append(args, filter.ModuleID)
	}
	if filter.ItemType != "" {
		where = append(where, "c.item_type = ?")
		args = append(args, filter.ItemType)
	}
	if filter.ItemID != "" {
		where = append(where, "c.item_id = ?")
		args = append(args, filter.ItemID)
	}
	if filter.OwnerID != "" {
		where = append(where, "c.module_id IN (SELECT m.id FROM module m JOIN course co ON co.id = m.course_id WHERE co.owner_id = ?)")
		args = append(args, filter.OwnerID)
	}
	if len(where) == 0 {
		return content.Content{}, content.ErrNotFound
	}
	q := `SELECT c.id, c.module_id, c.item_type, c.item_id, c."order" FROM content c WHERE ` + strings.Join(where, " AND ")

	exec := database.Executor(ctx, repo.db)
	var row contentRow
	if err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(q), args...); err != nil {
		return content.Content{}, trapNoRowsErr(err, content.ErrNotFound, "finding content")
	}
	item, err := repo.GetItem(ctx, row.ItemType, row.ItemID)
	if err != nil {
		return content.Content{}, err
	}
	return row.toContent(item), nil
}

func (repo *contentRepository) QueryContents(ctx context.Context, moduleID string) ([]content.Content, error) {
	q := `SELECT c.id, c.module_id, c.item_type, c.item_id, c."order" FROM content c
		WHERE c.module_id = $1 ORDER BY c."order", c.id`
	var rows []contentRow
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &rows, q, moduleID); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}

	// one query per item type
	idsByType := make(map[content.ItemType][]string)
	for _, row := range rows {
		idsByType[row.ItemType] = append(idsByType[row.ItemType], row.ItemID)
	}
	itemsByType := make(map[content.ItemType]map[string]content.Item, len(idsByType))
	for t, ids := range idsByType {
		items, err := repo.queryItems(ctx, t, ids)
		if err != nil {
			return nil, err
		}
		itemsByType[t] = items
	}

	contents := make([]content.Content, 0, len(rows))
	for _, row := range rows {
		if item, ok := itemsByType[row.ItemType][row.ItemID]; ok {
			contents = append(contents, row.toContent(item))
		}
	}
	return contents, nil
}

// DeleteContent relies on the content_delete_item trigger to delete the item.
func (repo *contentRepository) DeleteContent(ctx context.Context, id string) error {
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return checkAffected(res, content.ErrNotFound)
}

func (repo *contentRepository) SetContentOrders(ctx context.Context, ownerID string, orders map[string]int) error {
	q := `UPDATE content SET "order" = $1
		WHERE id = $2 AND module_id IN (
			SELECT m.id FROM module m JOIN course c ON c.id = m.course_id WHERE c.owner_id = $3
		)`
	exec := database.Executor(ctx, repo.db)
	for id, order := range orders {
		if _, err := exec.ExecContext(ctx, q, order, id, ownerID); err != nil {
			return errors.Wrap(err, "setting content order")
		}
	}
	return nil
}
