package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// ErrIncompleteSelection is returned when a selection of variation values
// does not cover every variation of an item, or references values that do
// not belong to it.
var ErrIncompleteSelection = errors.New("please specify the required variations")

// Selection is a normalized, sorted set of ItemVariation ids chosen for an
// item.
type Selection []int64

// NewSelection sorts ids and drops duplicates.
func NewSelection(ids []int64) Selection {
	s := slices.Clone(ids)
	slices.Sort(s)
	return slices.Compact(s)
}

// Key renders the selection as a stable string usable in a unique index.
func (s Selection) Key() string {
	var b strings.Builder
	for i, id := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// Equal reports whether both selections hold the same ids.
func (s Selection) Equal(other Selection) bool {
	return slices.Equal(s, other)
}

// Resolve validates the selection against the item's variations and returns
// the chosen values in selection order. Every selected id must belong to the
// item and every variation of the item must be covered.
func (i Item) Resolve(s Selection) ([]ItemVariation, error) {
	byID := make(map[int64]ItemVariation)
	for _, v := range i.Variations {
		for _, iv := range v.Values {
			iv.VariationName = v.Name
			byID[iv.ID] = iv
		}
	}

	covered := make(map[int64]struct{}, len(i.Variations))
	chosen := make([]ItemVariation, 0, len(s))
	for _, id := range s {
		iv, ok := byID[id]
		if !ok {
			return nil, ErrIncompleteSelection
		}
		covered[iv.VariationID] = struct{}{}
		chosen = append(chosen, iv)
	}
	if len(covered) < len(i.Variations) {
		return nil, ErrIncompleteSelection
	}
	return chosen, nil
}
