package tabular

import "context"

// Options carries per-format reader settings.
type Options struct {
	CSV  CSVOptions
	XLSX XLSXOptions
}

// Stream reads path as CSV or XLSX depending on its extension.
func Stream(ctx context.Context, path string, opts Options) (<-chan Row, <-chan error) {
	format, err := FormatOf(path)
	if err != nil {
		return failed(err)
	}
	if format == FormatXLSX {
		return StreamXLSX(ctx, path, opts.XLSX)
	}
	return StreamCSVFile(ctx, path, opts.CSV)
}

// Each calls fn for every row of path and stops at the first error.
func Each(ctx context.Context, path string, opts Options, fn func(Row) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows, errs := Stream(ctx, path, opts)
	var fnErr error
	for r := range rows {
		if fnErr != nil {
			continue
		}
		if err := fn(r); err != nil {
			fnErr = err
			cancel()
		}
	}
	streamErr := <-errs
	if fnErr != nil {
		return fnErr
	}
	return streamErr
}
