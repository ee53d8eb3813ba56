// Package vouching groups persisted statements by owning company and
// maintains the all-or-nothing sign-off flag per group. Groups are a pure
// projection: they are recomputed from the underlying items on every call
// and never stored.
package vouching

import (
	"context"

	"github.com/google/uuid"
)

// Entry is one vouchable statement as seen by the tracker: an uploaded or
// vouched item with its persisted record.
type Entry struct {
	ItemIndex   int       `json:"item_index"`
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	RecordID    uuid.UUID `json:"record_id"`
	Vouched     bool      `json:"vouched"`
}

// Group is the per-company vouching view. Vouched is the logical AND of
// the members.
type Group struct {
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Members     []Entry   `json:"members"`
	Vouched     bool      `json:"vouched"`
}

// Store persists the vouched flag. The write must cover every record of
// the company atomically.
type Store interface {
	SetVouchedForCompany(ctx context.Context, sessionID, companyID uuid.UUID, vouched bool) (int64, error)
}

// Groups projects entries into per-company groups, ordered by first
// appearance. An empty member list yields no group.
func Groups(entries []Entry) []Group {
	var groups []Group
	index := make(map[uuid.UUID]int)

	for _, e := range entries {
		i, ok := index[e.CompanyID]
		if !ok {
			i = len(groups)
			index[e.CompanyID] = i
			groups = append(groups, Group{
				CompanyID:   e.CompanyID,
				CompanyName: e.CompanyName,
				Vouched:     true,
			})
		}
		groups[i].Members = append(groups[i].Members, e)
		groups[i].Vouched = groups[i].Vouched && e.Vouched
	}

	return groups
}

// NextUnvouched returns the company id of the first group that is not yet
// fully vouched, or nil when every group is signed off. Auto-advance in
// the UI is a usability policy; this is only the suggestion.
func NextUnvouched(groups []Group) *uuid.UUID {
	for i := range groups {
		if !groups[i].Vouched {
			id := groups[i].CompanyID
			return &id
		}
	}
	return nil
}
