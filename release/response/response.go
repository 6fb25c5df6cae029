// Package response interprets the JSON that the gcloud
// release create command prints on stdout.
//
// The command emits either a single release object or a
// list whose first element is the release (a list appears
// when the create call also reports the initial rollout).
// Both shapes normalize to one Outcome here; the ambiguity
// never leaks past this package.
package response

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasttemplate"
)

// Release resource names have the fixed form
// projects/{P}/locations/{L}/deliveryPipelines/{D}/releases/{R}.
const nameFieldCount = 8

// linkTemplate renders the Cloud Console URL for a release
// from the fields of its resource name.
var linkTemplate = fasttemplate.New(
	"https://console.cloud.google.com/deploy/delivery-pipelines/"+
		"{location}/{pipeline}/releases/{release}"+
		"?project={project}",
	"{", "}",
)

// ErrNoOutput reports that the create command produced no
// usable output at all.
var ErrNoOutput = errors.New(
	"no output from create release command",
)

// Outcome is the parsed result of a successful release
// creation: the full resource name and a console link.
type Outcome struct {
	Name string
	Link string
}

// releaseRecord is the slice of a release object this
// system cares about.
type releaseRecord struct {
	Name string `json:"name"`
}

// Parse interprets captured stdout into an Outcome. Empty
// output, the literal "{}" or "[]", malformed JSON, a
// missing name, or a name without exactly eight
// slash-delimited fields all fail; there is no partial or
// empty success.
func Parse(stdout string) (Outcome, error) {
	const errCtx = "parsing create release response"

	trimmed := strings.TrimSpace(stdout)

	if trimmed == "" || trimmed == "{}" || trimmed == "[]" {
		return Outcome{}, fmt.Errorf(
			"%s: %w", errCtx, ErrNoOutput,
		)
	}

	record, err := decodeRelease(trimmed)
	if err != nil {
		return Outcome{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	if record.Name == "" {
		return Outcome{}, fmt.Errorf(
			"%s: couldn't parse release name", errCtx,
		)
	}

	fields := strings.Split(record.Name, "/")
	if len(fields) != nameFieldCount {
		return Outcome{}, fmt.Errorf(
			"%s: couldn't parse release name, "+
				"unexpected format: %s",
			errCtx, record.Name,
		)
	}

	link := linkTemplate.ExecuteString(map[string]any{
		"project":  fields[1],
		"location": fields[3],
		"pipeline": fields[5],
		"release":  fields[7],
	})

	return Outcome{
		Name: record.Name,
		Link: link,
	}, nil
}

// decodeRelease handles the object-or-list shape of the
// command output: a list is normalized to its first
// element, anything after it (the rollout) is ignored.
func decodeRelease(trimmed string) (releaseRecord, error) {
	if strings.HasPrefix(trimmed, "[") {
		var records []releaseRecord

		if err := json.Unmarshal(
			[]byte(trimmed), &records,
		); err != nil {
			return releaseRecord{}, fmt.Errorf(
				"invalid json %q: %w", trimmed, err,
			)
		}

		if len(records) == 0 {
			return releaseRecord{}, ErrNoOutput
		}

		return records[0], nil
	}

	var record releaseRecord

	if err := json.Unmarshal(
		[]byte(trimmed), &record,
	); err != nil {
		return releaseRecord{}, fmt.Errorf(
			"invalid json %q: %w", trimmed, err,
		)
	}

	return record, nil
}
