// util/json.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UnmarshalJSONBytes unmarshals the bytes into the given type, reporting
// syntax and type errors with line and character positions.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	return jsonError(b, json.Unmarshal(b, out))
}

// UnmarshalJSONBytesStrict is like UnmarshalJSONBytes but also fails if
// the JSON has object keys that do not correspond to fields of T.
func UnmarshalJSONBytesStrict[T any](b []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return jsonError(b, dec.Decode(out))
}

func jsonError(b []byte, err error) error {
	if err == nil {
		return nil
	}

	decodeOffset := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := decodeOffset(serr.Offset)
		return fmt.Errorf("error at line %d, character %d: %w", line, char, serr)

	case errors.As(err, &terr):
		line, char := decodeOffset(terr.Offset)
		return fmt.Errorf("error at line %d, character %d: %s value for %s.%s invalid for type %s",
			line, char, terr.Value, terr.Struct, terr.Field, terr.Type.String())

	default:
		return err
	}
}
