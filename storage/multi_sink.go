package storage

import (
	"context"
	"errors"
)

// MultiSink stores every dataset in each of its sinks. A failure in one sink
// does not stop the others; the errors are joined.
type MultiSink []Sink

func (m MultiSink) Store(ctx context.Context, dataset string, rows []any) error {
	var errs []error
	for _, s := range m {
		if err := s.Store(ctx, dataset, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
