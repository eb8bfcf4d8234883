package common

/*

You might be thinking: I know, I'll make a common pool of scene buckets
that all the operations can share! The problem is that as soon as one
operation calls the bucket's Close() method (and something _should_
call it) the bucket stops working for everything else still holding it.
Buckets are opened as one-offs, as needed; only the go-reader and
go-writer instances below are cached because they carry no Close().

*/

import (
	"context"
	"fmt"
	"sync"

	"github.com/whosonfirst/go-writer/v3"
)

var writers = make(map[string]writer.Writer)
var writers_mu = new(sync.RWMutex)

// NewWriter returns a whosonfirst/go-writer.Writer instance. Instances
// are cached in memory for repeat lookups.
func NewWriter(ctx context.Context, uri string) (writer.Writer, error) {

	writers_mu.Lock()
	defer writers_mu.Unlock()

	wr, ok := writers[uri]

	if ok {
		return wr, nil
	}

	wr, err := writer.NewWriter(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create writer for '%s', %w", uri, err)
	}

	writers[uri] = wr
	return wr, nil
}
