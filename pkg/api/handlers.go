package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/probelab/flowboard/pkg/editor"
	"github.com/probelab/flowboard/pkg/flows"
	"github.com/probelab/flowboard/pkg/models"
	"github.com/probelab/flowboard/pkg/registry"
)

// graphResponse is the JSON shape of the active session graph
type graphResponse struct {
	FlowID  string        `json:"flowId"`
	Nodes   []models.Node `json:"nodes"`
	Edges   []models.Edge `json:"edges"`
	NodeID  int           `json:"nodeId"`
	CanUndo bool          `json:"canUndo"`
	CanRedo bool          `json:"canRedo"`
}

// handleListFlows handles listing flows
func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	doc := s.flows.Document()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flows":        doc.Flows,
		"activeFlowId": doc.ActiveFlowID,
	})
}

// handleCreateFlow creates a flow and switches the session to it
func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	flow, err := s.controller.CreateFlow(req.Name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, flow)
}

// handleGetFlow handles retrieving a flow
func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := s.flows.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flow)
}

// handleRenameFlow handles renaming a flow
func (s *Server) handleRenameFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.controller.RenameFlow(mux.Vars(r)["id"], req.Name); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteFlow handles deleting a flow
func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.DeleteFlow(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSelectFlow switches the editing session to another flow
func (s *Server) handleSelectFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.SelectFlow(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeGraph(w, http.StatusOK)
}

// handleGetGraph returns the live session graph
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeGraph(w, http.StatusOK)
}

// handleAddNode adds a node to the active graph
func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string           `json:"type"`
		Position *models.Position `json:"position,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := s.controller.AddNode(req.Type, req.Position)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// handleConnect adds an edge between two nodes
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	edge, err := s.controller.Connect(req.Source, req.Target)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, edge)
}

// handleNodeChanges applies a batch of canvas node change events
func (s *Server) handleNodeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []editor.NodeChange
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.controller.ApplyNodeChanges(changes)
	w.WriteHeader(http.StatusNoContent)
}

// handleEdgeChanges applies a batch of canvas edge change events
func (s *Server) handleEdgeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []editor.EdgeChange
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.controller.ApplyEdgeChanges(changes)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteSelection deletes all selected elements
func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	nodes, edges := s.controller.DeleteSelection()
	writeJSON(w, http.StatusOK, map[string]int{
		"nodesRemoved": nodes,
		"edgesRemoved": edges,
	})
}

// handleClearCanvas removes every node and edge from the active graph
func (s *Server) handleClearCanvas(w http.ResponseWriter, r *http.Request) {
	s.controller.ClearCanvas()
	w.WriteHeader(http.StatusNoContent)
}

// handleUndo steps history back
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	applied := s.controller.Undo()
	s.writeHistoryResult(w, applied)
}

// handleRedo steps history forward
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	applied := s.controller.Redo()
	s.writeHistoryResult(w, applied)
}

// handleKey resolves a keyboard event into an editor action
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var ev editor.KeyEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	action := s.controller.HandleKey(ev)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"action":  action,
		"canUndo": s.controller.CanUndo(),
		"canRedo": s.controller.CanRedo(),
	})
}

// handleExport serves the active graph as a downloadable JSON document
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.controller.ExportJSON()
	if err != nil {
		http.Error(w, "Failed to export graph", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.controller.ExportFilename()))
	w.Write(data)
}

// handleImport replaces the active graph from an uploaded JSON document
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.controller.ImportJSON(raw); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeGraph(w, http.StatusOK)
}

// nodeTypeInfo describes one available node type in the palette
type nodeTypeInfo struct {
	Tag     string `json:"tag"`
	Name    string `json:"name"`
	Builtin bool   `json:"builtin"`
}

// handleListNodeTypes lists the node palette: builtin types followed by
// custom definitions
func (s *Server) handleListNodeTypes(w http.ResponseWriter, r *http.Request) {
	var out []nodeTypeInfo
	for _, tag := range registry.BuiltinTypes() {
		nt := s.registry.ResolveType(tag)
		out = append(out, nodeTypeInfo{Tag: tag, Name: nt.Name, Builtin: true})
	}
	for _, def := range s.registry.List() {
		out = append(out, nodeTypeInfo{Tag: def.ID, Name: def.Name})
	}

	writeJSON(w, http.StatusOK, out)
}

// handleListCustomNodes lists custom node definitions
func (s *Server) handleListCustomNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handleCreateCustomNode registers a new custom node definition
func (s *Server) handleCreateCustomNode(w http.ResponseWriter, r *http.Request) {
	var def models.CustomNodeDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.registry.Upsert(def)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// handleGetCustomNode retrieves a custom node definition
func (s *Server) handleGetCustomNode(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Resolve(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, def)
}

// handleUpdateCustomNode updates a custom node definition in place
func (s *Server) handleUpdateCustomNode(w http.ResponseWriter, r *http.Request) {
	var def models.CustomNodeDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	def.ID = mux.Vars(r)["id"]

	if _, err := s.registry.Resolve(def.ID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	saved, err := s.registry.Upsert(def)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteCustomNode deletes a custom node definition
func (s *Server) handleDeleteCustomNode(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeGraph writes the current session graph
func (s *Server) writeGraph(w http.ResponseWriter, status int) {
	nodes, edges, nodeID := s.controller.Graph()
	writeJSON(w, status, graphResponse{
		FlowID:  s.controller.ActiveFlowID(),
		Nodes:   nodes,
		Edges:   edges,
		NodeID:  nodeID,
		CanUndo: s.controller.CanUndo(),
		CanRedo: s.controller.CanRedo(),
	})
}

// writeHistoryResult writes the outcome of an undo or redo request
func (s *Server) writeHistoryResult(w http.ResponseWriter, applied bool) {
	nodes, edges, nodeID := s.controller.Graph()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied": applied,
		"nodes":   nodes,
		"edges":   edges,
		"nodeId":  nodeID,
		"canUndo": s.controller.CanUndo(),
		"canRedo": s.controller.CanRedo(),
	})
}

// writeDomainError maps domain errors to HTTP status codes
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, flows.ErrFlowNotFound), errors.Is(err, registry.ErrDefinitionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, flows.ErrLastFlow):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
