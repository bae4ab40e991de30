package memory

import (
	"context"

	"aeterna/internal/errors"
	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// AddNode implements storage.GraphStore.
func (s *Store) AddNode(_ context.Context, node model.GraphNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.ID] = node
	return nil
}

// AddEdge implements storage.GraphStore. Both endpoints must already
// exist, or this fails with a ReferentialIntegrityError.
func (s *Store) AddEdge(_ context.Context, edge model.GraphEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[edge.FromID]; !ok {
		return &errors.ReferentialIntegrityError{MissingNodeID: edge.FromID}
	}
	if _, ok := s.nodes[edge.ToID]; !ok {
		return &errors.ReferentialIntegrityError{MissingNodeID: edge.ToID}
	}
	s.edges = append(s.edges, edge)
	return nil
}

func (s *Store) outgoingLocked(tenantID, id string) []model.GraphEdge {
	var out []model.GraphEdge
	for _, e := range s.edges {
		if e.FromID == id && e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out
}

// GetNeighbors implements storage.GraphStore.
func (s *Store) GetNeighbors(_ context.Context, tenant model.TenantContext, id string) ([]storage.GraphNeighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, &errors.ReferentialIntegrityError{MissingNodeID: id}
	}
	if node.TenantID != tenant.TenantID {
		return nil, &errors.TenantViolationError{ExpectedTenant: node.TenantID, ActualTenant: tenant.TenantID, Resource: id}
	}

	var out []storage.GraphNeighbor
	for _, e := range s.outgoingLocked(tenant.TenantID, id) {
		if n, ok := s.nodes[e.ToID]; ok {
			out = append(out, storage.GraphNeighbor{Edge: e, Node: n})
		}
	}
	return out, nil
}

// FindPath implements storage.GraphStore via breadth-first search,
// grounded on the teacher's TraversePath: a cameFrom map records the
// edge that first reached each node, avoiding storing full paths in
// the queue.
func (s *Store) FindPath(_ context.Context, tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bfsLocked(tenant, src, dst, maxDepth)
}

// ShortestPath is an alias for FindPath in this adapter: BFS on an
// unweighted frontier already yields the shortest hop count.
func (s *Store) ShortestPath(ctx context.Context, tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error) {
	return s.FindPath(ctx, tenant, src, dst, maxDepth)
}

func (s *Store) bfsLocked(tenant model.TenantContext, src, dst string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if _, ok := s.nodes[src]; !ok {
		return nil, &errors.ReferentialIntegrityError{MissingNodeID: src}
	}
	if _, ok := s.nodes[dst]; !ok {
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
		for _, e := range s.outgoingLocked(tenant.TenantID, current.id) {
			if _, visited := cameFrom[e.ToID]; !visited {
				cameFrom[e.ToID] = current.id
				queue = append(queue, queueItem{id: e.ToID, depth: current.depth + 1})
			}
		}
	}

	return nil, &errors.ReferentialIntegrityError{MissingNodeID: dst}
}

// DetectCommunities implements storage.GraphStore via undirected
// connected-component labeling over the tenant's edge set, discarding
// components smaller than minSize.
func (s *Store) DetectCommunities(_ context.Context, tenant model.TenantContext, minSize int) ([]storage.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adjacency := make(map[string]map[string]struct{})
	for id, n := range s.nodes {
		if n.TenantID == tenant.TenantID {
			adjacency[id] = make(map[string]struct{})
		}
	}
	for _, e := range s.edges {
		if e.TenantID != tenant.TenantID {
			continue
		}
		if _, ok := adjacency[e.FromID]; ok {
			adjacency[e.FromID][e.ToID] = struct{}{}
		}
		if _, ok := adjacency[e.ToID]; ok {
			adjacency[e.ToID][e.FromID] = struct{}{}
		}
	}

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
