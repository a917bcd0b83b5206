package sshserver

import "testing"

func TestPTYSizeDefaultsWithoutPTYRequest(t *testing.T) {
	ch := &Channel{}
	w, h := ch.PTYSize()
	if w != 80 || h != 24 {
		t.Fatalf("PTYSize() = %d,%d; want 80,24", w, h)
	}
}

func TestPTYSizeReflectsLastWindowChange(t *testing.T) {
	ch := &Channel{width: 120, height: 40}
	w, h := ch.PTYSize()
	if w != 120 || h != 40 {
		t.Fatalf("PTYSize() = %d,%d; want 120,40", w, h)
	}
}

func TestResizeCallbackSetAndClear(t *testing.T) {
	ch := &Channel{}
	var gotW, gotH uint16
	ch.SetResizeCallback(func(w, h uint16) {
		gotW, gotH = w, h
	})

	ch.resizeMu.Lock()
	cb := ch.resizeCB
	ch.resizeMu.Unlock()
	if cb == nil {
		t.Fatal("resize callback not installed")
	}
	cb(200, 50)
	if gotW != 200 || gotH != 50 {
		t.Fatalf("callback received %d,%d; want 200,50", gotW, gotH)
	}

	ch.ClearResizeCallback()
	ch.resizeMu.Lock()
	cleared := ch.resizeCB
	ch.resizeMu.Unlock()
	if cleared != nil {
		t.Fatal("resize callback not cleared")
	}
}
