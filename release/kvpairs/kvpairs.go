// Package kvpairs encodes and decodes the comma separated
// key=value lists used by annotation, label, image, and
// deploy-parameter inputs.
package kvpairs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPair reports a segment that is not a valid
// key=value pair.
var ErrMalformedPair = errors.New("malformed key=value pair")

// Pairs is a decoded key=value list. Order records the keys
// in first-seen order so a later Encode is deterministic.
type Pairs struct {
	Values map[string]string
	Order  []string
}

// Decode splits text on commas and line breaks, then each
// segment on the first "=". Empty input yields an empty,
// non-nil Pairs. A segment without "=" or with an empty key
// fails with an error wrapping ErrMalformedPair.
//
// Decode and Encode are inverses only for input whose keys
// and values contain no separator and no "=" in keys; that
// is a documented limitation of the list format.
func Decode(text string) (Pairs, error) {
	const errCtx = "decoding key=value pairs"

	pairs := Pairs{Values: map[string]string{}}

	normalized := strings.ReplaceAll(text, "\n", ",")

	for _, segment := range strings.Split(normalized, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, found := strings.Cut(segment, "=")
		if !found || key == "" {
			return Pairs{}, fmt.Errorf(
				"%s: %q: %w",
				errCtx, segment, ErrMalformedPair,
			)
		}

		if _, seen := pairs.Values[key]; !seen {
			pairs.Order = append(pairs.Order, key)
		}

		pairs.Values[key] = value
	}

	return pairs, nil
}

// Encode joins the pairs as key=value segments in insertion
// order using sep. Returns empty string for empty pairs.
func (p Pairs) Encode(sep string) string {
	if len(p.Order) == 0 {
		return ""
	}

	segments := make([]string, 0, len(p.Order))

	for _, key := range p.Order {
		segments = append(
			segments, key+"="+p.Values[key],
		)
	}

	return strings.Join(segments, sep)
}

// Len returns the number of decoded pairs.
func (p Pairs) Len() int {
	return len(p.Order)
}

// Set inserts or replaces a pair, keeping insertion order
// for new keys.
func (p *Pairs) Set(key, value string) {
	if p.Values == nil {
		p.Values = map[string]string{}
	}

	if _, seen := p.Values[key]; !seen {
		p.Order = append(p.Order, key)
	}

	p.Values[key] = value
}

// Merge returns base with overlay applied on top: overlay
// keys override same-named base keys, base keys keep their
// position, new overlay keys are appended in overlay order.
func Merge(base, overlay Pairs) Pairs {
	merged := Pairs{Values: map[string]string{}}

	for _, key := range base.Order {
		merged.Set(key, base.Values[key])
	}

	for _, key := range overlay.Order {
		merged.Set(key, overlay.Values[key])
	}

	return merged
}

// Lowercased returns a copy with every key and value
// lowercased. Later duplicates produced by case folding win.
func (p Pairs) Lowercased() Pairs {
	lowered := Pairs{Values: map[string]string{}}

	for _, key := range p.Order {
		lowered.Set(
			strings.ToLower(key),
			strings.ToLower(p.Values[key]),
		)
	}

	return lowered
}
