package mailout

import (
	"sort"

	"github.com/cds-snc/list-manager/internal/domain"
)

// BuildBatches splits recipients into bulk-send payloads of at most limit
// data rows each. Every batch starts with a header row naming the columns
// the template can reference.
//
// Email rows carry a full unsubscribe link, phone rows carry the bare
// subscription id. Extra personalisation columns are appended in
// lexicographic key order so row layout is stable across sends.
func BuildBatches(recipients []Recipient, channel domain.Channel, baseURL string, personalisation map[string]interface{}, limit int) [][][]interface{} {
	keys := make([]string, 0, len(personalisation))
	for k := range personalisation {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := make([]interface{}, 0, 2+len(keys))
	if channel == domain.ChannelEmail {
		header = append(header, "email address", "unsubscribe_link")
	} else {
		header = append(header, "phone number", "subscription id")
	}
	for _, k := range keys {
		header = append(header, k)
	}

	var batches [][][]interface{}
	var rows [][]interface{}

	for i, rec := range recipients {
		if i%limit == 0 {
			rows = [][]interface{}{header}
		}

		if rec.Value != "" {
			row := make([]interface{}, 0, len(header))
			if channel == domain.ChannelEmail {
				row = append(row, rec.Value, baseURL+"/unsubscribe/"+rec.ID)
			} else {
				row = append(row, rec.Value, rec.ID)
			}
			for _, k := range keys {
				row = append(row, personalisation[k])
			}
			rows = append(rows, row)
		}

		// Every limit-sized segment yields a batch, header-only when all of
		// its values were empty, so n recipients always produce
		// ceil(n/limit) batches.
		if (i+1)%limit == 0 || i == len(recipients)-1 {
			batches = append(batches, rows)
		}
	}

	return batches
}
