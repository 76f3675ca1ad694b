package storage

import (
	"context"
	"fmt"
	"time"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const mongoBatchSize = 500

// MongoSink persists datasets as documents, one collection per dataset.
type MongoSink struct {
	session *mgo.Session
	dbName  string
	suffix  string
}

// NewMongoSink dials MongoDB and returns a ready-to-use MongoSink.
// Collections are named <dataset><suffix>.
func NewMongoSink(url, dbName, suffix string, timeout time.Duration) (*MongoSink, error) {
	session, err := mgo.DialWithTimeout(url, timeout)
	if err != nil {
		return nil, fmt.Errorf("mongo: dial: %w", err)
	}
	session.SetMode(mgo.Strong, true)
	return &MongoSink{session: session, dbName: dbName, suffix: suffix}, nil
}

// Collection returns the collection name used for dataset.
func (m *MongoSink) Collection(dataset string) string {
	return dataset + m.suffix
}

// Store clears the dataset's collection and bulk-inserts rows in batches.
func (m *MongoSink) Store(ctx context.Context, dataset string, rows []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// copy the master session per call so concurrent stores use separate sockets
	session := m.session.Copy()
	defer session.Close()

	c := session.DB(m.dbName).C(m.Collection(dataset))
	if _, err := c.RemoveAll(bson.M{}); err != nil {
		return fmt.Errorf("mongo: clear %s: %w", c.Name, err)
	}

	for i := 0; i < len(rows); i += mongoBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + mongoBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		bulk := c.Bulk()
		bulk.Unordered()
		bulk.Insert(rows[i:end]...)
		if _, err := bulk.Run(); err != nil {
			return fmt.Errorf("mongo: insert %s batch at %d: %w", c.Name, i, err)
		}
	}
	return nil
}

func (m *MongoSink) Close() error {
	m.session.Close()
	return nil
}
