// Package payload turns a client-supplied laptop request body into a row
// keyed by database column names.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"travel-admin-api/internal/model"
)

// Length limits applied before a row is written.
const (
	MaxCustomerNameLength  = 255
	MaxCustomerEmailLength = 255
	MaxCustomerPhoneLength = 64
)

// ErrNotObject is returned when the body is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// keyMap translates front-end field names to laptop_requests columns.
var keyMap = map[string]string{
	"id":                model.ColumnID,
	"destinationId":     model.ColumnDestinationID,
	"customerName":      model.ColumnCustomerName,
	"customerEmail":     model.ColumnCustomerEmail,
	"customerPhone":     model.ColumnCustomerPhone,
	"laptopModel":       model.ColumnLaptopModel,
	"laptopSerial":      model.ColumnLaptopSerial,
	"powerRequirements": model.ColumnPowerRequirements,
	"seatingPreference": model.ColumnSeatingPreference,
	"notes":             model.ColumnNotes,
	"createdAt":         model.ColumnCreatedAt,
}

var lengthLimits = map[string]int{
	model.ColumnCustomerName:  MaxCustomerNameLength,
	model.ColumnCustomerEmail: MaxCustomerEmailLength,
	model.ColumnCustomerPhone: MaxCustomerPhoneLength,
}

// Field is one member of a decoded JSON object.
type Field struct {
	Key   string
	Value any
}

// Payload is a decoded JSON object with its members in document order.
type Payload []Field

// Decode reads a single JSON object from r. Numbers are kept as json.Number.
// Anything other than exactly one object yields an error; ErrNotObject marks
// well-formed JSON of the wrong shape.
func Decode(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	var p Payload
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read payload key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected payload key %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read payload value for %q: %w", key, err)
		}
		p = append(p, Field{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read payload end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after payload object")
	}

	return p, nil
}

// ColumnFor returns the column a client key is stored under. Keys outside the
// mapping are lower-cased and left for the backend to accept or reject.
func ColumnFor(key string) string {
	if column, ok := keyMap[key]; ok {
		return column
	}
	return strings.ToLower(key)
}

// Normalize maps every key to its column, drops a null or zero id and a falsy
// created_at, and truncates the customer contact fields. When two keys land on
// the same column the later one wins.
func Normalize(p Payload) model.Row {
	row := make(model.Row, len(p))
	for _, f := range p {
		row[ColumnFor(f.Key)] = f.Value
	}

	if v, ok := row[model.ColumnID]; ok && isNullOrZero(v) {
		delete(row, model.ColumnID)
	}
	if v, ok := row[model.ColumnCreatedAt]; ok && isFalsy(v) {
		delete(row, model.ColumnCreatedAt)
	}

	for column, limit := range lengthLimits {
		if v, ok := row[column]; ok {
			row[column] = truncate(v, limit)
		}
	}

	return row
}

// HasID reports whether the normalized row targets an existing record.
func HasID(row model.Row) bool {
	_, ok := row[model.ColumnID]
	return ok
}

func isNullOrZero(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	}
	return false
}

func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	}
	return isNullOrZero(v)
}

func truncate(v any, limit int) any {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	default:
		return v
	}

	if utf8.RuneCountInString(s) <= limit {
		return v
	}
	return string([]rune(s)[:limit])
}
