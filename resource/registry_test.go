package resource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(Simple("a", Never(), "SELECT 1"), Simple("a", Never(), "SELECT 2"))
	assert.Error(t, err, "duplicate names should be rejected")

	_, err = NewRegistry(Simple("a", Never(), ""))
	assert.Error(t, err, "file resources need a query")

	_, err = NewRegistry(nil)
	assert.Error(t, err)

	reg, err := NewRegistry(GraphNode(AnyPayload("r_node")), GraphEdge(AnyPayload("road")))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_Channels(t *testing.T) {
	reg, err := NewRegistry(
		Simple("b", AnyPayload("beacon"), "SELECT 1"),
		Simple("c", ExceptPayloads("camera", "video_loss"), "SELECT 1"),
		Simple("c2", AnyPayload("camera"), "SELECT 1"),
		Font(AnyOnEitherChannel("font", "glyph"), "SELECT 1"),
		Simple("lut", Never(), "SELECT 1"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"beacon", "camera", "font", "glyph"}, reg.Channels())
}

func TestRegistry_BeaconScenario(t *testing.T) {
	reg := DefaultRegistry()

	matched := reg.Matching("beacon", "")
	require.Len(t, matched, 1)
	assert.Equal(t, "api/beacon", matched[0].Name())
}

func TestRegistry_KnownAndExcluded(t *testing.T) {
	reg := DefaultRegistry()

	// video_loss is blocked by both camera resources, but it is still known
	assert.Empty(t, reg.Matching("camera", "video_loss"))
	assert.True(t, reg.Excluded("camera", "video_loss"))
	assert.True(t, reg.Known("camera", "video_loss"))

	assert.False(t, reg.Known("no_such_channel", ""))
	assert.False(t, reg.Known("parking_area", "unknown_column"))
}

func TestRegistry_ExcludedButMatchedElsewhere(t *testing.T) {
	reg, err := NewRegistry(
		Simple("api/camera_pub", ExceptPayloads("camera", "video_loss"), "SELECT 1"),
		Simple("api/camera_status", AnyPayload("camera"), "SELECT 2"),
	)
	require.NoError(t, err)

	assert.True(t, reg.Excluded("camera", "video_loss"))
	assert.True(t, reg.Known("camera", "video_loss"))
	matching := reg.Matching("camera", "video_loss")
	require.Len(t, matching, 1)
	assert.Equal(t, "api/camera_status", matching[0].Name())
}

func TestCatalog_Order(t *testing.T) {
	resources := DefaultRegistry().Resources()
	require.NotEmpty(t, resources)

	assert.Equal(t, "system_attribute_pub", resources[0].Name())

	roadIdx, nodeIdx := -1, -1
	for i, res := range resources {
		switch res.Kind() {
		case KindGraphEdge:
			roadIdx = i
		case KindGraphNode:
			nodeIdx = i
		}
	}
	require.NotEqual(t, -1, roadIdx)
	require.NotEqual(t, -1, nodeIdx)
	assert.Less(t, roadIdx, nodeIdx, "roads must be loaded before road nodes")
}

func TestCatalog_QueriesReturnText(t *testing.T) {
	for _, res := range Catalog() {
		if !res.Kind().WritesFiles() {
			assert.Empty(t, res.SQL(), res.Name())
			continue
		}
		assert.True(t, strings.HasPrefix(res.SQL(), "SELECT "), res.Name())
		assert.Contains(t, res.SQL(), "::text", res.Name())
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "api/font/F07.ifnt", FontPath("F07"))
	assert.Equal(t, "api/img/g12.gif", GraphicPath(12))
	assert.Equal(t, "graph_edge", KindGraphEdge.String())
}
