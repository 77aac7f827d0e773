package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// MasterKind names a master-data lookup table.
type MasterKind string

// Master-data kinds served by the backend.
const (
	MasterProvinces    MasterKind = "provinces"
	MasterCities       MasterKind = "cities"
	MasterUniversities MasterKind = "universities"
)

// MasterKinds lists every supported kind.
var MasterKinds = []MasterKind{MasterProvinces, MasterCities, MasterUniversities}

// ParseMasterKind accepts a kind name case-insensitively.
func ParseMasterKind(s string) (MasterKind, error) {
	k := MasterKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MasterKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown master data kind %q (want provinces, cities or universities)", s)
}

// MasterItem is one row of a lookup table. ParentID links a city to its
// province and is zero for top-level kinds.
type MasterItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID int    `json:"parent_id,omitempty"`
}

type masterResponse struct {
	Data []MasterItem `json:"data"`
}

// ListMasterData returns the rows of a lookup table.
func (c *Client) ListMasterData(ctx context.Context, kind MasterKind) ([]MasterItem, error) {
	var resp masterResponse
	if err := c.doJSON(ctx, "list "+string(kind), http.MethodGet, "/master/"+string(kind), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
