package segments

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

var dialect = goqu.Dialect("postgres")

var nodeColumns = []any{
	"name", "roadway", "road_dir", "lat", "lon", "node_type", "pickable",
	"above", "transition", "lanes", "attach_side", "shift", "active",
	"station_id", "speed_limit",
}

var roadColumns = []any{"name", "abbrev", "r_class", "direction"}

// NodeQuery selects road nodes as JSON text, all of them when name is empty
func NodeQuery(name string) (string, []any, error) {
	return textQuery("r_node_view", nodeColumns, name)
}

// RoadQuery selects roads as JSON text, all of them when name is empty
func RoadQuery(name string) (string, []any, error) {
	return textQuery("road_view", roadColumns, name)
}

func textQuery(view string, columns []any, name string) (string, []any, error) {
	inner := dialect.From(view).Select(columns...).Order(goqu.C("name").Asc())
	if name != "" {
		inner = inner.Where(goqu.C("name").Eq(name))
	}
	return dialect.From(inner.As("r")).
		Select(goqu.L("row_to_json(r)::text")).
		Prepared(true).
		ToSQL()
}
