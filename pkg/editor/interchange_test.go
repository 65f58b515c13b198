package editor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/flowboard/pkg/models"
)

func TestExportImportRoundTrip(t *testing.T) {
	c := newTestController(t)
	_, err := c.CreateFlow("Case 42")
	require.NoError(t, err)

	a, err := c.AddNode("web", &models.Position{X: 10, Y: 20})
	require.NoError(t, err)
	b, err := c.AddNode("credential", &models.Position{X: 30, Y: 40})
	require.NoError(t, err)
	_, err = c.Connect(a.ID, b.ID)
	require.NoError(t, err)

	exported, err := c.ExportJSON()
	require.NoError(t, err)

	// Mangle the live graph, then import the export back
	c.ClearCanvas()
	nodes, _, _ := c.Graph()
	require.Empty(t, nodes)

	require.NoError(t, c.ImportJSON(exported))

	again, err := c.ExportJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(exported), string(again))

	nodes, edges, nextID := c.Graph()
	assert.Len(t, nodes, 2)
	assert.Len(t, edges, 1)
	assert.Equal(t, 3, nextID)
}

func TestImportMalformedLeavesStateUntouched(t *testing.T) {
	c := newTestController(t)
	_, err := c.CreateFlow("Case 42")
	require.NoError(t, err)
	_, err = c.AddNode("web", nil)
	require.NoError(t, err)

	before, err := c.ExportJSON()
	require.NoError(t, err)

	bad := [][]byte{
		[]byte("{not json"),
		[]byte(`{"nodes": [], "edges": [], "nodeId": 0}`),
		[]byte(`{"nodes": [{"id": ""}], "edges": [], "nodeId": 1}`),
		[]byte(`{"nodes": [{"id": "1"}, {"id": "1"}], "edges": [], "nodeId": 2}`),
		[]byte(`{"nodes": "nope", "edges": [], "nodeId": 1}`),
	}
	for _, data := range bad {
		assert.ErrorIs(t, c.ImportJSON(data), ErrInvalidImport)
	}

	after, err := c.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestImportReplacesGraphWholesale(t *testing.T) {
	c := newTestController(t)
	_, err := c.CreateFlow("Case 42")
	require.NoError(t, err)
	_, err = c.AddNode("web", nil)
	require.NoError(t, err)

	incoming := models.GraphExport{
		Nodes: []models.Node{
			{
				ID:       "7",
				Type:     "artifact",
				Position: models.Position{X: 1, Y: 2},
				Data:     map[string]interface{}{"label": "Imported"},
			},
		},
		Edges:  []models.Edge{},
		NodeID: 8,
	}
	data, err := json.Marshal(incoming)
	require.NoError(t, err)

	require.NoError(t, c.ImportJSON(data))

	nodes, edges, nextID := c.Graph()
	require.Len(t, nodes, 1)
	assert.Equal(t, "7", nodes[0].ID)
	assert.Equal(t, "Imported", nodes[0].Data["label"])
	assert.Empty(t, edges)
	assert.Equal(t, 8, nextID)

	// The next allocated node id continues from the imported counter
	node, err := c.AddNode("web", nil)
	require.NoError(t, err)
	assert.Equal(t, "8", node.ID)
}

func TestExportFilenameIncludesFlowNameAndDate(t *testing.T) {
	c := newTestController(t)
	_, err := c.CreateFlow("Case 42: Phishing Kit")
	require.NoError(t, err)

	name := c.ExportFilename()
	assert.Contains(t, name, "case-42-phishing-kit")
	assert.Contains(t, name, time.Now().Format("2006-01-02"))
	assert.Contains(t, name, ".json")
}
