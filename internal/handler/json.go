package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

// writeJSON encodes the body produced by fn with the given status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

var errBadJSON = errors.New("malformed request body")

// decodeError marks a body that could not be decoded. The cause stays in
// the chain so field validation errors raised while decoding are kept.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string        { return "decode request: " + e.err.Error() }
func (e *decodeError) Unwrap() error        { return e.err }
func (e *decodeError) Is(target error) bool { return target == errBadJSON }

// decodeObject reads a JSON object from the request body and calls fn for
// every field. Unknown fields must be skipped by fn.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &decodeError{err: err}
	}
	if len(body) == 0 {
		return &decodeError{err: errors.New("empty body")}
	}
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// decodeID reads a numeric id sent either as a JSON number or as a string.
func decodeID(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	case jx.Null:
		return 0, d.Null()
	default:
		return d.Int64()
	}
}

// decodeIDs reads an array of ids. Elements may also be objects carrying an
// "id" field, which is how cart lines echo their variations back.
func decodeIDs(d *jx.Decoder) ([]int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var ids []int64
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			id, err := decodeID(d)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "id" {
				return d.Skip()
			}
			id, err := decodeID(d)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	})
	return ids, err
}

func decodeOptString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(urlParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
