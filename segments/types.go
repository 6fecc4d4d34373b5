// Package segments carries road network changes to the graph builder.
//
// Road nodes and roads are not written to files. Each fetched row becomes a
// typed message, encoded with msgpack and handed to a Sink. A full refresh
// of road nodes is bracketed by BeginFullRefresh and EndFullRefresh so the
// consumer can detect snapshot boundaries.
package segments

import (
	"encoding/json"
	"fmt"
)

// MsgKind identifies a graph update message
type MsgKind uint8

const (
	MsgBeginFullRefresh MsgKind = iota
	MsgUpsertNode
	MsgRemoveNode
	MsgEndFullRefresh
	MsgUpsertEdge
)

func (k MsgKind) String() string {
	switch k {
	case MsgBeginFullRefresh:
		return "begin_full_refresh"
	case MsgUpsertNode:
		return "upsert_node"
	case MsgRemoveNode:
		return "remove_node"
	case MsgEndFullRefresh:
		return "end_full_refresh"
	case MsgUpsertEdge:
		return "upsert_edge"
	default:
		return fmt.Sprintf("MsgKind(%d)", uint8(k))
	}
}

// RNode is a roadway node (station, entrance, exit, intersection)
type RNode struct {
	Name       string   `json:"name" msgpack:"name"`
	Roadway    *string  `json:"roadway" msgpack:"roadway"`
	RoadDir    *string  `json:"road_dir" msgpack:"road_dir"`
	Lat        *float64 `json:"lat" msgpack:"lat"`
	Lon        *float64 `json:"lon" msgpack:"lon"`
	NodeType   int      `json:"node_type" msgpack:"node_type"`
	Pickable   bool     `json:"pickable" msgpack:"pickable"`
	Above      bool     `json:"above" msgpack:"above"`
	Transition int      `json:"transition" msgpack:"transition"`
	Lanes      int      `json:"lanes" msgpack:"lanes"`
	AttachSide bool     `json:"attach_side" msgpack:"attach_side"`
	Shift      int      `json:"shift" msgpack:"shift"`
	Active     bool     `json:"active" msgpack:"active"`
	StationID  *string  `json:"station_id" msgpack:"station_id"`
	SpeedLimit int      `json:"speed_limit" msgpack:"speed_limit"`
}

// Road is a named roadway
type Road struct {
	Name      string `json:"name" msgpack:"name"`
	Abbrev    string `json:"abbrev" msgpack:"abbrev"`
	RClass    int    `json:"r_class" msgpack:"r_class"`
	Direction int    `json:"direction" msgpack:"direction"`
}

// Msg is one graph update
type Msg struct {
	Kind MsgKind `msgpack:"kind"`
	Node *RNode  `msgpack:"node,omitempty"`
	Road *Road   `msgpack:"road,omitempty"`
	// Name of a removed node
	Name string `msgpack:"name,omitempty"`
}

// BeginFullRefresh opens a batch which replaces every node
func BeginFullRefresh() Msg { return Msg{Kind: MsgBeginFullRefresh} }

// EndFullRefresh closes a full refresh batch; nodes not upserted since the
// matching begin are gone
func EndFullRefresh() Msg { return Msg{Kind: MsgEndFullRefresh} }

// UpsertNode adds or replaces one road node
func UpsertNode(n RNode) Msg { return Msg{Kind: MsgUpsertNode, Node: &n} }

// RemoveNode drops a node by name
func RemoveNode(name string) Msg { return Msg{Kind: MsgRemoveNode, Name: name} }

// UpsertEdge adds or replaces one road
func UpsertEdge(r Road) Msg { return Msg{Kind: MsgUpsertEdge, Road: &r} }

// Key returns the partition key of a message.
// Node messages share one key so brackets stay ordered with their upserts.
func (m Msg) Key() string {
	if m.Kind == MsgUpsertEdge {
		return "road"
	}
	return "r_node"
}

// ParseNode decodes a road node row
func ParseNode(row string) (RNode, error) {
	var n RNode
	if err := json.Unmarshal([]byte(row), &n); err != nil {
		return n, fmt.Errorf("invalid r_node row: %w", err)
	}
	return n, nil
}

// ParseRoad decodes a road row
func ParseRoad(row string) (Road, error) {
	var r Road
	if err := json.Unmarshal([]byte(row), &r); err != nil {
		return r, fmt.Errorf("invalid road row: %w", err)
	}
	return r, nil
}
