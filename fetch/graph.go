package fetch

import (
	"context"
	"fmt"

	"github.com/mndot/honeybee/segments"
)

// fetchNodes sends road node messages. A full refresh is bracketed by
// begin/end messages; a single node is upserted, or removed when the query
// finds nothing.
func (e *Executor) fetchNodes(ctx context.Context, name string) (int, error) {
	if e.graph == nil {
		return 0, fmt.Errorf("no graph sender configured")
	}
	sql, args, err := segments.NodeQuery(name)
	if err != nil {
		return 0, err
	}
	rows, err := e.query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	// parse every row before sending so a bad row never leaves an open bracket
	nodes := make([]segments.RNode, 0, len(rows))
	for _, row := range rows {
		node, err := segments.ParseNode(row)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		nodes = append(nodes, node)
	}

	var msgs []segments.Msg
	switch {
	case name == "":
		msgs = append(msgs, segments.BeginFullRefresh())
		for _, n := range nodes {
			msgs = append(msgs, segments.UpsertNode(n))
		}
		msgs = append(msgs, segments.EndFullRefresh())
	case len(nodes) == 0:
		msgs = append(msgs, segments.RemoveNode(name))
	default:
		for _, n := range nodes {
			msgs = append(msgs, segments.UpsertNode(n))
		}
	}
	return len(nodes), e.sendAll(ctx, msgs)
}

// fetchRoads sends road messages. Roads are never removed.
func (e *Executor) fetchRoads(ctx context.Context, name string) (int, error) {
	if e.graph == nil {
		return 0, fmt.Errorf("no graph sender configured")
	}
	sql, args, err := segments.RoadQuery(name)
	if err != nil {
		return 0, err
	}
	rows, err := e.query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	msgs := make([]segments.Msg, 0, len(rows))
	for _, row := range rows {
		road, err := segments.ParseRoad(row)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		msgs = append(msgs, segments.UpsertEdge(road))
	}
	return len(msgs), e.sendAll(ctx, msgs)
}

func (e *Executor) sendAll(ctx context.Context, msgs []segments.Msg) error {
	for _, msg := range msgs {
		if err := e.graph.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
