package store

import (
	"testing"
	"time"
)

func TestNotificationStoreShowAndExpire(t *testing.T) {
	s := NewNotificationStore()

	id := s.Show("saved", SeveritySuccess, 20*time.Millisecond)
	items := s.Items()
	if len(items) != 1 || items[0].ID != id || items[0].Severity != SeveritySuccess {
		t.Fatalf("unexpected items %+v", items)
	}

	deadline := time.Now().Add(time.Second)
	for len(s.Items()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("notification did not self-destruct")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotificationStoreHide(t *testing.T) {
	s := NewNotificationStore()
	id := s.Show("hello", SeverityInfo, time.Minute)

	s.Hide(id)
	if len(s.Items()) != 0 {
		t.Fatal("expected notification dismissed")
	}

	// Dismissing again is a no-op.
	s.Hide(id)
}

func TestNotificationStoreOrderAndClear(t *testing.T) {
	s := NewNotificationStore()
	s.ShowInfo("first")
	s.ShowError("second")

	items := s.Items()
	if len(items) != 2 || items[0].Message != "first" || items[1].Severity != SeverityError {
		t.Fatalf("unexpected items %+v", items)
	}

	s.Clear()
	if len(s.Items()) != 0 {
		t.Fatal("expected all notifications dismissed")
	}
}

func TestNotificationStoreClosedRejectsNew(t *testing.T) {
	s := NewNotificationStore()
	s.Close()

	s.ShowInfo("too late")
	if len(s.Items()) != 0 {
		t.Fatal("a closed store must drop new notifications")
	}
}

func TestNotificationStoreZeroDurationUsesDefault(t *testing.T) {
	s := NewNotificationStore()
	s.Show("hello", SeverityInfo, 0)

	items := s.Items()
	if len(items) != 1 || items[0].Duration != DefaultNotificationTTL {
		t.Fatalf("unexpected items %+v", items)
	}
}
