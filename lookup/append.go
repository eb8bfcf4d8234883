package lookup

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"
)

// AppendLookupFunc derives lookup entries from a single document body.
type AppendLookupFunc func(context.Context, *sync.Map, io.ReadCloser) error

// ExportFingerprintAppendLookupFunc indexes the exports recorded in a
// run report document, keyed by composite fingerprint and storing the
// path the composite was exported to. Documents without a
// filmstrip:exports property are skipped.
func ExportFingerprintAppendLookupFunc(ctx context.Context, lu *sync.Map, fh io.ReadCloser) error {

	body, err := io.ReadAll(fh)

	if err != nil {
		return err
	}

	exports_rsp := gjson.GetBytes(body, "properties.filmstrip:exports")

	if !exports_rsp.Exists() {
		return nil
	}

	for _, e := range exports_rsp.Array() {

		fp := e.Get("fingerprint").String()
		path := e.Get("path").String()

		if fp == "" || path == "" {
			continue
		}

		_, exists := lu.LoadOrStore(fp, path)

		if exists {
			slog.Debug("Existing fingerprint key", "fingerprint", fp, "path", path)
		}
	}

	return nil
}
