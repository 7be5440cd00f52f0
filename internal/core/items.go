package core

import "encoding/json"

// itemJSON is the wire form of one line inside the repairs.items blob.
type itemJSON struct {
	Item        string `json:"item"`
	AmountCents int64  `json:"amount_cents"`
}

// ItemsView is the tagged result of parsing an items blob: either a
// parsed item list or the raw text kept opaque. Callers must handle
// both variants; legacy rows may hold free text instead of JSON.
type ItemsView struct {
	Items  []RepairItem
	Raw    string
	Opaque bool
}

// EncodeItems serializes items to the JSON blob stored on a repair row.
func EncodeItems(items []RepairItem) (string, error) {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		out[i] = itemJSON{Item: it.Name, AmountCents: it.Amount.Cents}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseItems decodes an items blob. An unparsable or legacy blob is
// recovered as a single opaque line carrying the record total, so a
// bad row degrades in display instead of failing the read.
func ParseItems(blob string, total Money) ItemsView {
	var raw []itemJSON
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return ItemsView{
			Items:  []RepairItem{{Name: blob, Amount: total}},
			Raw:    blob,
			Opaque: true,
		}
	}
	items := make([]RepairItem, len(raw))
	for i, it := range raw {
		items[i] = RepairItem{Name: it.Item, Amount: Money{Cents: it.AmountCents}}
	}
	return ItemsView{Items: items}
}
