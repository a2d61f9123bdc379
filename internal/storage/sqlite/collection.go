package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// collection stores documents of one kind in a table with a JSON data column.
type collection[T models.Document] struct {
	db     *sql.DB
	table  string
	newDoc func() T
}

var _ storage.Collection[*models.Account] = (*collection[*models.Account])(nil)

func newCollection[T models.Document](db *sql.DB, table string, newDoc func() T) *collection[T] {
	return &collection[T]{db: db, table: table, newDoc: newDoc}
}

// Insert persists a new document.
func (c *collection[T]) Insert(ctx context.Context, doc T) error {
	storage.Stamp(doc, time.Now().UTC())
	meta := doc.Meta()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", c.table, err)
	}

	_, err = c.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, user_id, created_at, data) VALUES (?, ?, ?, ?)", c.table),
		meta.ID, meta.UserID, meta.CreatedAt.UnixNano(), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", c.table, err)
	}
	return nil
}

// Get retrieves one of the user's documents by ID.
func (c *collection[T]) Get(ctx context.Context, userID, id string) (T, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id = ? AND user_id = ?", c.table),
		id, userID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", c.table, id, storage.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get from %s: %w", c.table, err)
	}
	return c.decode(data)
}

// List returns the user's documents matching q.
func (c *collection[T]) List(ctx context.Context, userID string, q storage.Query) ([]T, error) {
	return c.query(ctx, &userID, q)
}

// Scan returns documents of every user matching q.
func (c *collection[T]) Scan(ctx context.Context, q storage.Query) ([]T, error) {
	return c.query(ctx, nil, q)
}

// Update replaces a document matched by ID and owner.
func (c *collection[T]) Update(ctx context.Context, doc T) error {
	meta := doc.Meta()
	meta.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", c.table, err)
	}

	res, err := c.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = ? WHERE id = ? AND user_id = ?", c.table),
		string(data), meta.ID, meta.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.table, err)
	}
	return expectRow(res, c.table, meta.ID)
}

// Delete removes one of the user's documents.
func (c *collection[T]) Delete(ctx context.Context, userID, id string) error {
	res, err := c.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", c.table),
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.table, err)
	}
	return expectRow(res, c.table, id)
}

// DeleteWhere removes the user's documents matching q.Where.
func (c *collection[T]) DeleteWhere(ctx context.Context, userID string, q storage.Query) (int64, error) {
	where, args, err := buildWhere(&userID, storage.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", c.table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", c.table, err)
	}
	return res.RowsAffected()
}

func (c *collection[T]) query(ctx context.Context, userID *string, q storage.Query) ([]T, error) {
	where, args, err := buildWhere(userID, q)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT data FROM %s%s ORDER BY ", c.table, where)
	if q.SortBy != "" {
		// julianday orders timestamps chronologically whatever their offset;
		// it yields NULL for plain strings, which then sort as text.
		path := jsonPath(q.SortBy)
		fmt.Fprintf(&b, "COALESCE(julianday(%[1]s), %[1]s)", path)
	} else {
		b.WriteString("created_at")
	}
	if q.Desc {
		b.WriteString(" DESC")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	rows, err := c.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.table, err)
	}
	defer rows.Close()

	var docs []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c.table, err)
		}
		doc, err := c.decode(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c.table, err)
	}
	return docs, nil
}

func (c *collection[T]) decode(data string) (T, error) {
	doc := c.newDoc()
	if err := json.Unmarshal([]byte(data), doc); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s document: %w", c.table, err)
	}
	return doc, nil
}

// buildWhere translates a query into a WHERE clause over the JSON data column.
func buildWhere(userID *string, q storage.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var clauses []string
	var args []any
	if userID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *userID)
	}

	// Sorted for stable SQL text.
	fields := make([]string, 0, len(q.Where))
	for field := range q.Where {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		clauses = append(clauses, jsonPath(field)+" = ?")
		args = append(args, sqlValue(q.Where[field]))
	}

	if q.DateField != "" {
		path := jsonPath(q.DateField)
		if !q.From.IsZero() {
			clauses = append(clauses, fmt.Sprintf("julianday(%s) >= julianday(?)", path))
			args = append(args, q.From.UTC().Format(time.RFC3339Nano))
		}
		if !q.To.IsZero() {
			clauses = append(clauses, fmt.Sprintf("julianday(%s) < julianday(?)", path))
			args = append(args, q.To.UTC().Format(time.RFC3339Nano))
		}
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func jsonPath(field string) string {
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

// sqlValue converts filter values to what json_extract returns.
func sqlValue(v any) any {
	switch v := v.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	// Named types such as models.TransactionType are passed as their base kind.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

func expectRow(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, storage.ErrNotFound)
	}
	return nil
}
