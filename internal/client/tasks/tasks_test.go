package tasks

import (
	"context"
	"errors"
	"testing"
)

func TestTracker_NewerTaskSupersedesOlder(t *testing.T) {
	var tr Tracker

	oldCtx, oldTok := tr.Start(context.Background(), KeyListRefresh)
	newCtx, newTok := tr.Start(context.Background(), KeyListRefresh)

	if !errors.Is(oldCtx.Err(), context.Canceled) {
		t.Fatalf("expected superseded context to be cancelled, got %v", oldCtx.Err())
	}
	if newCtx.Err() != nil {
		t.Fatalf("newest context must stay live")
	}

	if tr.Finish(oldTok) {
		t.Fatalf("superseded task must not report current")
	}
	if !tr.Running(KeyListRefresh) {
		t.Fatalf("newest task should still be running")
	}
	if !tr.Finish(newTok) {
		t.Fatalf("newest task must report current")
	}
	if tr.Running(KeyListRefresh) {
		t.Fatalf("no task should be running after Finish")
	}
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	var tr Tracker

	refreshCtx, refreshTok := tr.Start(context.Background(), KeyListRefresh)
	_, commitTok := tr.Start(context.Background(), KeyCommit)

	if refreshCtx.Err() != nil {
		t.Fatalf("task under a different key must not be cancelled")
	}
	if !tr.Finish(refreshTok) || !tr.Finish(commitTok) {
		t.Fatalf("both tasks should be current")
	}
}

func TestTracker_Cancel(t *testing.T) {
	var tr Tracker
	ctx, tok := tr.Start(context.Background(), KeyListRefresh)
	tr.Cancel(KeyListRefresh)

	if ctx.Err() == nil {
		t.Fatalf("expected cancelled context")
	}
	if tr.Finish(tok) {
		t.Fatalf("cancelled task must not report current")
	}
}

func TestTracker_Current(t *testing.T) {
	var tr Tracker
	_, oldTok := tr.Start(context.Background(), KeyListRefresh)
	if !tr.Current(oldTok) {
		t.Fatalf("only task must be current")
	}
	_, newTok := tr.Start(context.Background(), KeyListRefresh)
	if tr.Current(oldTok) || !tr.Current(newTok) {
		t.Fatalf("newest task must be the only current one")
	}
	tr.Finish(newTok)
	if tr.Current(newTok) {
		t.Fatalf("finished task must not be current")
	}
}

func TestTracker_TryStartRefusesWhileBusy(t *testing.T) {
	var tr Tracker

	ctx, tok, ok := tr.TryStart(context.Background(), KeyCommit)
	if !ok {
		t.Fatalf("first TryStart must succeed")
	}
	if _, _, ok := tr.TryStart(context.Background(), KeyCommit); ok {
		t.Fatalf("second TryStart must be refused while the first runs")
	}
	if ctx.Err() != nil {
		t.Fatalf("refused TryStart must not cancel the running task")
	}
	if !tr.Finish(tok) {
		t.Fatalf("task must still be current")
	}
	if _, tok, ok := tr.TryStart(context.Background(), KeyCommit); !ok {
		t.Fatalf("TryStart must succeed once the key is free")
	} else {
		tr.Finish(tok)
	}
}
