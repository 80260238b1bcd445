package event

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// Raw record field names.
const (
	fieldTimestamp = "timestamp"
	fieldType      = "type"
	fieldSource    = "sourceID"
	fieldTarget    = "targetID"
	fieldAbility   = "ability"
	fieldAmount    = "amount"
	fieldPrepull   = "prepull"
)

var knownFields = map[string]struct{}{
	fieldTimestamp: {},
	fieldType:      {},
	fieldSource:    {},
	fieldTarget:    {},
	fieldAbility:   {},
	fieldAmount:    {},
	fieldPrepull:   {},
}

// Normalize converts one raw log record into an Event.
func Normalize(raw []byte) (Event, error) {
	return normalize(-1, raw)
}

// NormalizeAll converts a whole log, assigning stream indexes in order.
// The first malformed record aborts normalization.
func NormalizeAll(records []json.RawMessage) ([]Event, error) {
	events := make([]Event, 0, len(records))
	for i, raw := range records {
		ev, err := normalize(i, raw)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func normalize(index int, raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, &MalformedEventError{Index: index, Field: "record", Err: fmt.Errorf("%w: not valid JSON", ErrInvalidField)}
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Event{}, &MalformedEventError{Index: index, Field: "record", Err: fmt.Errorf("%w: not an object", ErrInvalidField)}
	}

	ts, err := requireInt(doc, fieldTimestamp)
	if err != nil {
		return Event{}, &MalformedEventError{Index: index, Field: fieldTimestamp, Err: err}
	}
	kind, err := requireKind(doc)
	if err != nil {
		return Event{}, &MalformedEventError{Index: index, Timestamp: ts, Field: fieldType, Err: err}
	}
	source, err := requireInt(doc, fieldSource)
	if err != nil {
		return Event{}, &MalformedEventError{Index: index, Timestamp: ts, Field: fieldSource, Err: err}
	}

	ev := Event{
		Index:     index,
		Timestamp: ts,
		Kind:      kind,
		SourceID:  int(source),
		TargetID:  NoActor,
	}
	if t := doc.Get(fieldTarget); t.Exists() {
		target, err := integer(t, fieldTarget)
		if err != nil {
			return Event{}, &MalformedEventError{Index: index, Timestamp: ts, Field: fieldTarget, Err: err}
		}
		ev.TargetID = int(target)
	}
	if a := doc.Get(fieldAbility); a.Exists() {
		ev.Ability = Ability{
			ID:     int(a.Get("guid").Int()),
			Name:   a.Get("name").String(),
			School: int(a.Get("type").Int()),
		}
	}
	ev.Amount = doc.Get(fieldAmount).Int()
	ev.Prepull = doc.Get(fieldPrepull).Bool()

	doc.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, ok := knownFields[k]; ok {
			return true
		}
		if ev.Meta == nil {
			ev.Meta = make(Meta)
		}
		ev.Meta[k] = metaValue(value)
		return true
	})
	return ev, nil
}

func requireInt(doc gjson.Result, field string) (int64, error) {
	v := doc.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return 0, ErrMissingField
	}
	return integer(v, field)
}

// integer rejects non-numbers and fractional numbers instead of truncating.
func integer(v gjson.Result, field string) (int64, error) {
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidField, field)
	}
	if v.Num != math.Trunc(v.Num) {
		return 0, fmt.Errorf("%w: %s is not an integer: %s", ErrInvalidField, field, v.Raw)
	}
	return v.Int(), nil
}

func requireKind(doc gjson.Result) (Kind, error) {
	v := doc.Get(fieldType)
	if !v.Exists() || v.Type == gjson.Null {
		return "", ErrMissingField
	}
	if v.Type != gjson.String {
		return "", fmt.Errorf("%w: type is not a string", ErrInvalidField)
	}
	k := Kind(v.String())
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidField, k)
	}
	if k.IsSynthetic() {
		return "", fmt.Errorf("%w: %s", ErrSyntheticKind, k)
	}
	return k, nil
}

// metaValue keeps integers as int64 so Meta accessors stay exact.
func metaValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		if f := v.Float(); f == float64(int64(f)) {
			return v.Int()
		}
		return v.Float()
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.String:
		return v.String()
	default:
		return v.Value()
	}
}
