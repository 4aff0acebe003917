// Package campaign models the entities tracked by the client: campaigns and
// the line items that belong to them. Entities are attribute maps so that a
// partial server push can be merged without knowing every field; the typed
// Campaign and Item views decode the attributes the UI layers care about.
package campaign

import (
	"time"

	syncdomain "campsync/internal/domain/sync"
)

const (
	KindCampaign syncdomain.Kind = "campaign"
	KindItem     syncdomain.Kind = "item"
)

// Entity is the unit held by the local state store. Attrs is the full
// attribute set; Revision is the last-modified marker used to judge recency.
// The store owns entities exclusively: readers get copies, never the
// original maps.
type Entity struct {
	ID       string          `json:"id"`
	Kind     syncdomain.Kind `json:"kind"`
	Attrs    map[string]any  `json:"attrs"`
	Revision time.Time       `json:"revision"`
}

// Clone returns a deep-enough copy: a fresh Attrs map with the same values.
// Nested values are shared, matching the shallow-merge semantics of Patch.
func (e Entity) Clone() Entity {
	attrs := make(map[string]any, len(e.Attrs))
	for k, v := range e.Attrs {
		attrs[k] = v
	}
	e.Attrs = attrs
	return e
}

// Patch shallow-merges attrs into a copy of the entity and stamps the new
// revision. Attributes absent from attrs are left untouched.
func (e Entity) Patch(attrs map[string]any, revision time.Time) Entity {
	out := e.Clone()
	for k, v := range attrs {
		out.Attrs[k] = v
	}
	out.Revision = revision
	return out
}

// RevisionOf extracts the updated_at attribute as the entity revision,
// falling back to now when the payload carries none or it fails to parse.
func RevisionOf(attrs map[string]any, now time.Time) time.Time {
	raw, ok := attrs["updated_at"].(string)
	if !ok {
		return now
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return now
	}
	return ts
}

func getString(attrs map[string]any, key string) string {
	v, _ := attrs[key].(string)
	return v
}

func getBool(attrs map[string]any, key string) bool {
	v, _ := attrs[key].(bool)
	return v
}

// Campaign is the typed view over a campaign entity.
type Campaign struct {
	ID       string
	Name     string
	System   string
	Status   string
	Notes    string
	Revision time.Time
}

// CampaignFrom decodes the attributes a campaign carries.
func CampaignFrom(e Entity) Campaign {
	return Campaign{
		ID:       e.ID,
		Name:     getString(e.Attrs, "name"),
		System:   getString(e.Attrs, "system"),
		Status:   getString(e.Attrs, "status"),
		Notes:    getString(e.Attrs, "notes"),
		Revision: e.Revision,
	}
}

// Entity converts the view back to the attribute-map form.
func (c Campaign) Entity() Entity {
	return Entity{
		ID:   c.ID,
		Kind: KindCampaign,
		Attrs: map[string]any{
			"name":   c.Name,
			"system": c.System,
			"status": c.Status,
			"notes":  c.Notes,
		},
		Revision: c.Revision,
	}
}

// Item is the typed view over a line-item entity.
type Item struct {
	ID         string
	CampaignID string
	Title      string
	Done       bool
	Revision   time.Time
}

// ItemFrom decodes the attributes a line item carries.
func ItemFrom(e Entity) Item {
	return Item{
		ID:         e.ID,
		CampaignID: getString(e.Attrs, "campaign_id"),
		Title:      getString(e.Attrs, "title"),
		Done:       getBool(e.Attrs, "done"),
		Revision:   e.Revision,
	}
}

// Entity converts the view back to the attribute-map form.
func (i Item) Entity() Entity {
	return Entity{
		ID:   i.ID,
		Kind: KindItem,
		Attrs: map[string]any{
			"campaign_id": i.CampaignID,
			"title":       i.Title,
			"done":        i.Done,
		},
		Revision: i.Revision,
	}
}
