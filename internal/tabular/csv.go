package tabular

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	Charset    string // e.g. "windows-1252"; empty reads UTF-8
}

// decode wraps r with a decoder for charset.
func decode(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}

// StreamCSV reads a CSV whose first row is the header and sends each data row
// on the returned channel. Both channels are closed when processing
// completes; at most one error is sent.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		in, err := decode(r, opts.Charset)
		if err != nil {
			errCh <- err
			return
		}
		reader := csv.NewReader(in)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		first, err := reader.Read()
		if err == io.EOF {
			errCh <- eris.New("csv: file has no header row")
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		header := NewHeader(first)

		line := 1
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			line++
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read row %d", line)
				return
			}

			select {
			case rowCh <- Row{Header: header, Fields: record, Line: line}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// StreamCSVFile opens path and streams it with StreamCSV. The file is closed
// once the stream ends.
func StreamCSVFile(ctx context.Context, path string, opts CSVOptions) (<-chan Row, <-chan error) {
	f, err := os.Open(path)
	if err != nil {
		return failed(eris.Wrapf(err, "csv: open %s", path))
	}

	rows, errs := StreamCSV(ctx, f, opts)
	outRows := make(chan Row)
	outErrs := make(chan error, 1)
	go func() {
		defer close(outErrs)
		defer f.Close() //nolint:errcheck
		for r := range rows {
			select {
			case outRows <- r:
			case <-ctx.Done():
			}
		}
		close(outRows)
		for err := range errs {
			outErrs <- err
		}
	}()
	return outRows, outErrs
}

func failed(err error) (<-chan Row, <-chan error) {
	rowCh := make(chan Row)
	errCh := make(chan error, 1)
	close(rowCh)
	errCh <- err
	close(errCh)
	return rowCh, errCh
}
