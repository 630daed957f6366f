// util/zstd.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bufio"
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type zstdReadCloser struct {
	*zstd.Decoder
	underlying io.Closer
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	if z.underlying != nil {
		return z.underlying.Close()
	}
	return nil
}

type readCloser struct {
	io.Reader
	underlying io.Closer
}

func (r readCloser) Close() error {
	if r.underlying != nil {
		return r.underlying.Close()
	}
	return nil
}

// MaybeDecompress returns a ReadCloser for the contents of rc; if they
// are zstd compressed, they are decompressed transparently. Closing the
// returned ReadCloser also closes rc.
func MaybeDecompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(0))
		if err != nil {
			rc.Close()
			return nil, err
		}
		return zstdReadCloser{Decoder: zr, underlying: rc}, nil
	}
	return readCloser{Reader: br, underlying: rc}, nil
}

// CompressZstd returns the zstd-compressed version of b.
func CompressZstd(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
