package memory

import (
	"context"
	"testing"

	"aeterna/internal/errors"
	"aeterna/internal/model"
)

func tenant(id string) model.TenantContext {
	return model.TenantContext{TenantID: id, UserID: "u1"}
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Store(ctx, tenant("t1"), "k1", []byte("hello")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	v, ok, err := s.Retrieve(ctx, tenant("t1"), "k1")
	if err != nil || !ok || string(v) != "hello" {
		t.Fatalf("Retrieve mismatch: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestRetrieveAcrossTenantsFailsHard(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Store(ctx, tenant("t1"), "k1", []byte("hello")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	_, _, err := s.Retrieve(ctx, tenant("t2"), "k1")
	var tv *errors.TenantViolationError
	if !errorsAs(err, &tv) {
		t.Fatalf("expected TenantViolationError, got %v", err)
	}
}

func TestAcquireLockRejectsContention(t *testing.T) {
	s := New()
	ctx := context.Background()
	lease, err := s.AcquireLock(ctx, "job-1", 30)
	if err != nil || lease == nil {
		t.Fatalf("expected lease, got %v %v", lease, err)
	}
	second, err := s.AcquireLock(ctx, "job-1", 30)
	if err != nil || second != nil {
		t.Fatalf("expected nil,nil on contention, got %v %v", second, err)
	}
	released, err := s.ReleaseLock(ctx, "job-1", lease.Token)
	if err != nil || !released {
		t.Fatalf("expected release to succeed, got %v %v", released, err)
	}
	third, err := s.AcquireLock(ctx, "job-1", 30)
	if err != nil || third == nil {
		t.Fatalf("expected re-acquire after release, got %v %v", third, err)
	}
}

func TestPublishSubscribeDeliversInOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	recv, err := s.Subscribe(ctx, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer recv.Close()

	events := []model.GovernanceEvent{
		{Type: model.EventDriftDetected, Timestamp: 1},
		{Type: model.EventPolicyUpdated, Timestamp: 2},
	}
	for _, e := range events {
		if err := s.Publish(ctx, e); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	for _, want := range events {
		got, ok, err := recv.Recv(ctx)
		if err != nil || !ok {
			t.Fatalf("Recv: %v %v", ok, err)
		}
		if got.Timestamp != want.Timestamp {
			t.Fatalf("expected timestamp %d, got %d", want.Timestamp, got.Timestamp)
		}
	}
}

func TestGraphAddEdgeRejectsMissingEndpoint(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.AddNode(ctx, model.GraphNode{ID: "a", TenantID: "t1"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	err := s.AddEdge(ctx, model.GraphEdge{FromID: "a", ToID: "missing", TenantID: "t1", Relation: "ref"})
	var ri *errors.ReferentialIntegrityError
	if !errorsAs(err, &ri) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
}

func TestGraphFindPathBFS(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.AddNode(ctx, model.GraphNode{ID: id, TenantID: "t1"}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	edges := []model.GraphEdge{
		{FromID: "a", ToID: "b", TenantID: "t1", Relation: "rel"},
		{FromID: "b", ToID: "c", TenantID: "t1", Relation: "rel"},
		{FromID: "a", ToID: "d", TenantID: "t1", Relation: "rel"},
	}
	for _, e := range edges {
		if err := s.AddEdge(ctx, e); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}

	path, err := s.FindPath(ctx, tenant("t1"), "a", "c", 5)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, path)
		}
	}
}

func TestDetectCommunitiesFiltersBySize(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "isolated"} {
		if err := s.AddNode(ctx, model.GraphNode{ID: id, TenantID: "t1"}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	if err := s.AddEdge(ctx, model.GraphEdge{FromID: "a", ToID: "b", TenantID: "t1", Relation: "rel"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := s.AddEdge(ctx, model.GraphEdge{FromID: "b", ToID: "c", TenantID: "t1", Relation: "rel"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	communities, err := s.DetectCommunities(ctx, tenant("t1"), 2)
	if err != nil {
		t.Fatalf("DetectCommunities: %v", err)
	}
	if len(communities) != 1 || len(communities[0].NodeIDs) != 3 {
		t.Fatalf("expected one 3-node community, got %+v", communities)
	}
}

// errorsAs avoids importing the stdlib errors package under a name
// that collides with this module's internal/errors import.
func errorsAs(err error, target interface{}) bool {
	switch t := target.(type) {
	case **errors.TenantViolationError:
		e, ok := err.(*errors.TenantViolationError)
		if ok {
			*t = e
		}
		return ok
	case **errors.ReferentialIntegrityError:
		e, ok := err.(*errors.ReferentialIntegrityError)
		if ok {
			*t = e
		}
		return ok
	}
	return false
}
