package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"

	"aeterna/internal/errors"
	"aeterna/internal/model"
	"aeterna/internal/storage"
)

func (s *Store) AddNode(_ context.Context, node model.GraphNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	labelsJSON, err := json.Marshal(node.Labels)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO graph_nodes (id, tenant_id, kind, labels) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET tenant_id = excluded.tenant_id, kind = excluded.kind, labels = excluded.labels`,
		node.ID, node.TenantID, node.Kind, string(labelsJSON),
	)
	return err
}

func (s *Store) nodeExistsLocked(id string) (model.GraphNode, bool, error) {
	var node model.GraphNode
	var labelsJSON string
	row := s.db.QueryRow(`SELECT id, tenant_id, kind, labels FROM graph_nodes WHERE id = ?`, id)
	err := row.Scan(&node.ID, &node.TenantID, &node.Kind, &labelsJSON)
	if err == sql.ErrNoRows {
		return model.GraphNode{}, false, nil
	}
	if err != nil {
		return model.GraphNode{}, false, err
	}
	if labelsJSON != "" {
		if err := json.Unmarshal([]byte(labelsJSON), &node.Labels); err != nil {
			return model.GraphNode{}, false, err
		}
	}
	return node, true, nil
}

// AddEdge implements storage.GraphStore. Both endpoints must already
// exist, per the teacher's own "validate inputs to avoid ghost nodes"
// discipline in StoreLink, here enforced as a hard referential check
// rather than a silent insert.
func (s *Store) AddEdge(_ context.Context, edge model.GraphEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.nodeExistsLocked(edge.FromID); err != nil {
		return err
	} else if !ok {
		return &errors.ReferentialIntegrityError{MissingNodeID: edge.FromID}
	}
	if _, ok, err := s.nodeExistsLocked(edge.ToID); err != nil {
		return err
	} else if !ok {
		return &errors.ReferentialIntegrityError{MissingNodeID: edge.ToID}
	}

	_, err := s.db.Exec(
		`INSERT INTO graph_edges (from_id, to_id, tenant_id, relation, weight) VALUES (?, ?, ?, ?, ?)`,
		edge.FromID, edge.ToID, edge.TenantID, edge.Relation, edge.Weight,
	)
	return err
}

func (s *Store) outgoingLocked(tenantID, id string) ([]model.GraphEdge, error) {
	rows, err := s.db.Query(
		`SELECT from_id, to_id, tenant_id, relation, weight FROM graph_edges WHERE from_id = ? AND tenant_id = ?`,
		id, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []model.GraphEdge
	for rows.Next() {
		var e model.GraphEdge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.TenantID, &e.Relation, &e.Weight); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) GetNeighbors(_ context.Context, tenant model.TenantContext, id string) ([]storage.GraphNeighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok, err := s.nodeExistsLocked(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &errors.ReferentialIntegrityError{MissingNodeID: id}
	}
	if node.TenantID != tenant.TenantID {
		return nil, &errors.TenantViolationError{ExpectedTenant: node.TenantID, ActualTenant: tenant.TenantID, Resource: id}
	}

	edges, err := s.outgoingLocked(tenant.TenantID, id)
	if err != nil {
		return nil, err
	}
	var out []storage.GraphNeighbor
	for _, e := range edges {
		n, ok, err := s.nodeExistsLocked(e.ToID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, storage.GraphNeighbor{Edge: e, Node: n})
		}
	}
	return out, nil
}

// FindPath implements storage.GraphStore via BFS with a cameFrom map,
// directly grounded on the teacher's TraversePath.
func (s *Store) FindPath(_ context.Context, tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bfsLocked(tenant, src, dst, maxDepth)
}

func (s *Store) ShortestPath(ctx context.Context, tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error) {
	return s.FindPath(ctx, tenant, src, dst, maxDepth)
}

func (s *Store) bfsLocked(tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if _, ok, err := s.nodeExistsLocked(src); err != nil {
		return nil, err
	} else if !ok {
		return nil, &errors.ReferentialIntegrityError{MissingNodeID: src}
	}
	if _, ok, err := s.nodeExistsLocked(dst); err != nil {
		return nil, err
	} else if !ok {
		return nil, &errors.ReferentialIntegrityError{MissingNodeID: dst}
	}

	type queueItem struct {
		id    string
		depth int
	}

	cameFrom := map[string]string{src: ""}
	queue := []queueItem{{id: src, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.id == dst {
			path := []string{dst}
			curr := dst
			for curr != src {
				curr = cameFrom[curr]
				path = append([]string{curr}, path...)
			}
			return path, nil
		}
		if current.depth >= maxDepth {
			continue
		}

		edges, err := s.outgoingLocked(tenant.TenantID, current.id)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if _, visited := cameFrom[e.ToID]; !visited {
				cameFrom[e.ToID] = current.id
				queue = append(queue, queueItem{id: e.ToID, depth: current.depth + 1})
			}
		}
	}

	return nil, &errors.ReferentialIntegrityError{MissingNodeID: dst}
}

// DetectCommunities implements storage.GraphStore via connected-
// component labeling over the tenant's undirected edge closure,
// grounded on original_source's community-detection approach.
func (s *Store) DetectCommunities(_ context.Context, tenant model.TenantContext, minSize int) ([]storage.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id FROM graph_nodes WHERE tenant_id = ?`, tenant.TenantID)
	if err != nil {
		return nil, err
	}
	adjacency := make(map[string]map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		adjacency[id] = make(map[string]struct{})
	}
	rows.Close()

	edgeRows, err := s.db.Query(`SELECT from_id, to_id FROM graph_edges WHERE tenant_id = ?`, tenant.TenantID)
	if err != nil {
		return nil, err
	}
	for edgeRows.Next() {
		var from, to string
		if err := edgeRows.Scan(&from, &to); err != nil {
			edgeRows.Close()
			return nil, err
		}
		if _, ok := adjacency[from]; ok {
			adjacency[from][to] = struct{}{}
		}
		if _, ok := adjacency[to]; ok {
			adjacency[to][from] = struct{}{}
		}
	}
	edgeRows.Close()

	visited := make(map[string]bool)
	var communities []storage.Community
	for id := range adjacency {
		if visited[id] {
			continue
		}
		var members []string
		stack := []string{id}
		visited[id] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, n)
			for neighbor := range adjacency[n] {
				if !visited[neighbor] {
					visited[neighbor] = true
					stack = append(stack, neighbor)
				}
			}
		}
		if len(members) >= minSize {
			communities = append(communities, storage.Community{NodeIDs: members})
		}
	}
	return communities, nil
}

var _ storage.GraphStore = (*Store)(nil)
