// Package pgstore keeps documents as jsonb rows in Postgres. Live
// subscriptions are fed by the change feed: every acknowledged write is
// published, and subscribers listen on the fan-out side.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/changefeed"
	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

// Publisher receives every acknowledged write.
type Publisher interface {
	Publish(ctx context.Context, c docstore.Change) error
}

// Feed opens a listener on the writes of one collection.
type Feed interface {
	Listen(ctx context.Context, collection string) (changefeed.Listener, error)
}

type Store struct {
	DB  *pgxpool.Pool
	Pub Publisher
	Sub Feed
	log *logrus.Entry
}

func New(db *pgxpool.Pool, pub Publisher, sub Feed) *Store {
	return &Store{DB: db, Pub: pub, Sub: sub, log: logging.For("pgstore")}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Query(ctx context.Context, collection string, f docstore.Filter) ([]docstore.Document, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.IsZero() {
		rows, err = s.DB.Query(ctx,
			`SELECT id, fields FROM documents WHERE collection=$1 ORDER BY created_at, id`, collection)
	} else {
		rows, err = s.DB.Query(ctx,
			`SELECT id, fields FROM documents WHERE collection=$1 AND fields->>$2 = $3 ORDER BY created_at, id`,
			collection, f.Field, f.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		d, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.DB.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, err
	}
	return decode(id, raw)
}

func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	fields = docstore.NormalizeFields(fields)
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}
	id := uuid.NewString()
	if _, err := s.DB.Exec(ctx,
		`INSERT INTO documents(collection, id, fields) VALUES ($1, $2, $3::jsonb)`, collection, id, b); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	s.publish(ctx, docstore.Change{Kind: docstore.Added, Collection: collection, Doc: docstore.Document{ID: id, Fields: fields}})
	return id, nil
}

// Update merges fields into the stored document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	b, err := json.Marshal(docstore.NormalizeFields(fields))
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	var raw []byte
	err = s.DB.QueryRow(ctx,
		`UPDATE documents SET fields = fields || $3::jsonb, updated_at = now()
		 WHERE collection=$1 AND id=$2 RETURNING fields`, collection, id, b).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	d, err := decode(id, raw)
	if err != nil {
		return err
	}
	s.publish(ctx, docstore.Change{Kind: docstore.Modified, Collection: collection, Doc: d})
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	var raw []byte
	err := s.DB.QueryRow(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2 RETURNING fields`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	d, err := decode(id, raw)
	if err != nil {
		return err
	}
	s.publish(ctx, docstore.Change{Kind: docstore.Removed, Collection: collection, Doc: d})
	return nil
}

// publish never fails the write: the row is already committed.
func (s *Store) publish(ctx context.Context, c docstore.Change) {
	if s.Pub == nil {
		return
	}
	if err := s.Pub.Publish(context.WithoutCancel(ctx), c); err != nil {
		s.log.WithError(err).WithField("collection", c.Collection).WithField("id", c.Doc.ID).Error("publish change")
	}
}

func decode(id string, raw []byte) (docstore.Document, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return docstore.Document{ID: id, Fields: docstore.RestoreTimestamps(fields)}, nil
}
