package state

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "status.json"))
}

func TestUpdateTaskPersistsAndReloads(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateTask("t1", "add_master", "10.0.0.1:7000", "succeeded", ""); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	task, ok := snap.Tasks["t1"]
	if !ok || task.Status != "succeeded" {
		t.Fatalf("unexpected task snapshot: %+v", snap.Tasks)
	}
}

func TestRecordTaskCompletionSurvivesReload(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.RecordTaskCompletion(); err != nil {
			t.Fatalf("RecordTaskCompletion: %v", err)
		}
	}
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.History == nil {
		t.Fatal("expected History to be populated")
	}
	points := snap.History.TasksCompletedPerMinute.Snapshot()
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3 (buffer position must survive JSON reload)", len(points))
	}
}

func TestRecordSlotsMigratedAccumulates(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordSlotsMigrated(100); err != nil {
		t.Fatalf("RecordSlotsMigrated: %v", err)
	}
	if err := s.RecordSlotsMigrated(50); err != nil {
		t.Fatalf("RecordSlotsMigrated: %v", err)
	}
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	points := snap.History.SlotsMigratedPerMinute.Snapshot()
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Value != 100 || points[1].Value != 50 {
		t.Errorf("unexpected values: %+v", points)
	}
}
