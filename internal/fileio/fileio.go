// Copyright (c) 2025 Neomantra Corp
//
// Input/output stream helpers for the CLI's --input/--output flags. File
// transport and optional transparent zstd framing are explicitly outside
// the core pipeline's scope; this package is the external collaborator the
// core byte stream is handed to.

package fileio

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// OpenInput returns a reader for path, or os.Stdin if path is "-". If path
// ends in ".zst" or ".zstd", the returned reader transparently decompresses
// zstd. The returned closer should always be called; it is a no-op for
// stdin.
func OpenInput(path string) (io.Reader, io.Closer, error) {
	var reader io.Reader
	var closer io.Closer

	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		reader, closer = file, file
	} else {
		reader, closer = os.Stdin, io.NopCloser(nil)
	}

	if strings.HasSuffix(path, ".zst") || strings.HasSuffix(path, ".zstd") {
		zr, err := zstd.NewReader(reader)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		return zr.IOReadCloser(), closer, nil
	}
	return reader, closer, nil
}

// CreateOutput returns a writer for path, or os.Stdout if path is "-". If
// path ends in ".zst" or ".zstd", the returned writer transparently
// zstd-compresses. The returned close function flushes and releases any
// underlying resources and should always be deferred.
func CreateOutput(path string) (io.Writer, func() error, error) {
	var writer io.Writer
	var closer io.Closer

	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return nil, nil, err
		}
		writer, closer = file, file
	} else {
		writer, closer = os.Stdout, nil
	}

	closeFn := func() error {
		if closer != nil {
			return closer.Close()
		}
		return nil
	}

	if strings.HasSuffix(path, ".zst") || strings.HasSuffix(path, ".zstd") {
		zw, err := zstd.NewWriter(writer)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return zw, func() error {
			if err := zw.Close(); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		}, nil
	}
	return writer, closeFn, nil
}
