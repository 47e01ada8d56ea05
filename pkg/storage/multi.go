package storage

import (
	"context"
	"fmt"
)

// MultiSink writes every artifact to each of its sinks in order and stops at the first failure
type MultiSink []Sink

// Put stores data in every sink
func (m MultiSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	for i, s := range m {
		if err := s.Put(ctx, key, data, contentType); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
