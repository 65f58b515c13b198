package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/flowboard/pkg/config"
	"github.com/probelab/flowboard/pkg/editor"
	"github.com/probelab/flowboard/pkg/flows"
	"github.com/probelab/flowboard/pkg/models"
	"github.com/probelab/flowboard/pkg/registry"
	"github.com/probelab/flowboard/pkg/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	provider, err := storage.NewProvider(storage.ProviderConfig{Type: storage.MemoryProviderType})
	require.NoError(t, err)
	require.NoError(t, provider.Initialize())
	t.Cleanup(func() { provider.Close() })

	flowMgr := flows.NewManager(provider.GetDocumentStore(), flows.Options{Synchronous: true})
	t.Cleanup(func() { flowMgr.Close() })

	reg := registry.NewCustomNodeRegistry(provider.GetCustomNodeStore(), nil)

	controller, err := editor.NewController(flowMgr, reg, editor.Options{SnapshotDebounce: -1})
	require.NoError(t, err)
	t.Cleanup(controller.Close)

	srv := NewServer(config.DefaultConfig(), controller, flowMgr, reg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return srv, ts
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestFlowLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	// The store seeds a first flow on startup
	var listing struct {
		Flows        []models.Flow `json:"flows"`
		ActiveFlowID string        `json:"activeFlowId"`
	}
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/flows", nil)
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Flows, 1)
	seeded := listing.Flows[0]
	assert.Equal(t, seeded.ID, listing.ActiveFlowID)

	// Creating a flow switches the session to it
	var created models.Flow
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/flows", map[string]string{"name": "Case 42"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &created)
	assert.Equal(t, "Case 42", created.Name)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/flows", nil)
	decodeBody(t, resp, &listing)
	assert.Len(t, listing.Flows, 2)
	assert.Equal(t, created.ID, listing.ActiveFlowID)

	// Rename
	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/flows/"+created.ID, map[string]string{"name": "Case 42b"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Blank names are rejected
	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/flows/"+created.ID, map[string]string{"name": "   "})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Select the seeded flow back
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/flows/"+seeded.ID+"/select", nil)
	var graph graphResponse
	decodeBody(t, resp, &graph)
	assert.Equal(t, seeded.ID, graph.FlowID)

	// Delete the created flow, then refuse to delete the last one
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/flows/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/flows/"+seeded.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown flow ids are 404
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/flows/no-such-flow", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGraphEditing(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/flows", map[string]string{"name": "Scratch"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var a, b models.Node
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/nodes", map[string]interface{}{"type": "web"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &a)
	assert.Equal(t, "New Endpoint", a.Data["label"])

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/nodes", map[string]interface{}{
		"type":     "ssh",
		"position": models.Position{X: 50, Y: 60},
	})
	decodeBody(t, resp, &b)
	assert.Equal(t, 50.0, b.Position.X)

	var edge models.Edge
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/edges", map[string]string{"source": a.ID, "target": b.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &edge)
	assert.True(t, edge.Animated)

	// Self connections are rejected
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/edges", map[string]string{"source": a.ID, "target": a.ID})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Select node b, then delete the selection; the edge goes with it
	sel := true
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/node-changes", []editor.NodeChange{
		{ID: b.ID, Type: editor.NodeChangeSelect, Selected: &sel},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var deleted map[string]int
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/graph/selection", nil)
	decodeBody(t, resp, &deleted)
	assert.Equal(t, 1, deleted["nodesRemoved"])
	assert.Equal(t, 1, deleted["edgesRemoved"])

	var graph graphResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/graph", nil)
	decodeBody(t, resp, &graph)
	assert.Len(t, graph.Nodes, 1)
	assert.Empty(t, graph.Edges)
	assert.True(t, graph.CanUndo)
}

func TestUndoRedoEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/flows", map[string]string{"name": "Scratch"})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/nodes", map[string]interface{}{"type": "web"})
	resp.Body.Close()

	var result struct {
		Applied bool          `json:"applied"`
		Nodes   []models.Node `json:"nodes"`
		CanRedo bool          `json:"canRedo"`
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/undo", nil)
	decodeBody(t, resp, &result)
	assert.True(t, result.Applied)
	assert.Empty(t, result.Nodes)
	assert.True(t, result.CanRedo)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/redo", nil)
	decodeBody(t, resp, &result)
	assert.True(t, result.Applied)
	assert.Len(t, result.Nodes, 1)

	// At the history tail redo reports applied=false
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/redo", nil)
	decodeBody(t, resp, &result)
	assert.False(t, result.Applied)
}

func TestExportImportEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/flows", map[string]string{"name": "Case 42"})
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/nodes", map[string]interface{}{"type": "web"})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/v1/graph/export")
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "case-42")

	var exported models.GraphExport
	decodeBody(t, resp, &exported)
	require.Len(t, exported.Nodes, 1)

	// Round-trip the export through the import endpoint
	var graph graphResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/import", exported)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &graph)
	assert.Len(t, graph.Nodes, 1)
	assert.Equal(t, exported.NodeID, graph.NodeID)

	// Malformed documents are rejected
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/import", map[string]interface{}{"nodeId": 0})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCustomNodeEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	def := models.CustomNodeDefinition{
		Name: "Threat Intel",
		Fields: []models.FieldDefinition{
			{ID: "feed", Label: "Feed URL", Type: models.FieldTypeURL},
		},
	}

	var created models.CustomNodeDefinition
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/custom-nodes", def)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)

	// A definition without a name is rejected
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/custom-nodes", models.CustomNodeDefinition{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got models.CustomNodeDefinition
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/custom-nodes/"+created.ID, nil)
	decodeBody(t, resp, &got)
	assert.Equal(t, "Threat Intel", got.Name)

	created.Name = "Threat Intel v2"
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/custom-nodes/"+created.ID, created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &got)
	assert.Equal(t, "Threat Intel v2", got.Name)

	// The palette lists builtins before custom definitions
	var palette []nodeTypeInfo
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/node-types", nil)
	decodeBody(t, resp, &palette)
	require.Greater(t, len(palette), 5)
	assert.Equal(t, "web", palette[0].Tag)
	assert.True(t, palette[0].Builtin)
	assert.Equal(t, created.ID, palette[len(palette)-1].Tag)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/custom-nodes/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/custom-nodes/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketPushesGraphUpdates(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The first frame is the current graph of the seeded flow
	var initial editor.GraphUpdate
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&initial))
	assert.NotEmpty(t, initial.FlowID)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/graph/nodes", map[string]interface{}{"type": "web"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// An update for the new node arrives; skip frames until it does
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "no graph update received")
		var update editor.GraphUpdate
		conn.SetReadDeadline(deadline)
		require.NoError(t, conn.ReadJSON(&update))
		if len(update.Nodes) == len(initial.Nodes)+1 {
			assert.Equal(t, initial.FlowID, update.FlowID)
			break
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, fmt.Sprintf("%s/api/v1/flows", ts.URL), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
