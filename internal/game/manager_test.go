package game

import (
	"errors"
	"strings"
	"testing"
)

func newTestRegistry() *Registry {
	return NewRegistry(NopEmitter{}, DefaultPrompts(), NewFallbackSource())
}

func TestCreateSession(t *testing.T) {
	reg := newTestRegistry()

	sess, hostID, err := reg.CreateSession("Host", Settings{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(sess.ID) != codeLength {
		t.Errorf("code %q should have length %d", sess.ID, codeLength)
	}
	for _, c := range sess.ID {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("code %q contains %q outside the alphabet", sess.ID, c)
		}
	}
	if hostID == "" {
		t.Error("expected a host player ID")
	}
	if sess.Phase() != PhaseLobby {
		t.Errorf("new session phase = %q, want lobby", sess.Phase())
	}
	if got := sess.Settings().TotalRounds; got != 3 {
		t.Errorf("default rounds = %d, want 3", got)
	}
	if reg.SessionCount() != 1 {
		t.Errorf("session count = %d, want 1", reg.SessionCount())
	}
}

func TestCreateSessionRejectsBadSettings(t *testing.T) {
	reg := newTestRegistry()
	if _, _, err := reg.CreateSession("Host", Settings{TotalRounds: 11}); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if _, _, err := reg.CreateSession("Host", Settings{TotalRounds: 3, VotingTime: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestGetNormalizesCode(t *testing.T) {
	reg := newTestRegistry()
	sess, _, err := reg.CreateSession("Host", Settings{})
	if err != nil {
		t.Fatal(err)
	}

	for _, code := range []string{sess.ID, strings.ToLower(sess.ID), "  " + sess.ID + " "} {
		got, err := reg.Get(code)
		if err != nil {
			t.Errorf("Get(%q): %v", code, err)
		} else if got != sess {
			t.Errorf("Get(%q) returned a different session", code)
		}
	}

	if _, err := reg.Get("ZZZZ"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(ZZZZ) err = %v, want ErrSessionNotFound", err)
	}
}

func TestJoinAndRejoin(t *testing.T) {
	reg := newTestRegistry()
	sess, hostID, err := reg.CreateSession("Host", Settings{})
	if err != nil {
		t.Fatal(err)
	}
	sess.AddPlayer(hostID, "Host")

	_, _, _, err = reg.Join(sess.ID, "   ", "")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("blank name err = %v, want ErrValidation", err)
	}

	_, beaID, rejoined, err := reg.Join(sess.ID, "Bea", "")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if rejoined {
		t.Error("first join reported as rejoin")
	}

	if err := sess.MarkConnected(beaID, false, ""); err != nil {
		t.Fatal(err)
	}

	// Rejoin by ID keeps the identity.
	_, gotID, rejoined, err := reg.Join(sess.ID, "Bea", beaID)
	if err != nil {
		t.Fatalf("rejoin by id: %v", err)
	}
	if !rejoined || gotID != beaID {
		t.Errorf("rejoin by id = (%q, %v), want (%q, true)", gotID, rejoined, beaID)
	}

	// Rejoin by name is case-insensitive.
	_, gotID, rejoined, err = reg.Join(sess.ID, "BEA", "")
	if err != nil {
		t.Fatalf("rejoin by name: %v", err)
	}
	if !rejoined || gotID != beaID {
		t.Errorf("rejoin by name = (%q, %v), want (%q, true)", gotID, rejoined, beaID)
	}

	if n := len(sess.Roster().Players); n != 2 {
		t.Errorf("roster size = %d, want 2", n)
	}
}

func TestJoinUnknownSession(t *testing.T) {
	reg := newTestRegistry()
	if _, _, _, err := reg.Join("NOPE", "Bea", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestConnectionBinding(t *testing.T) {
	reg := newTestRegistry()
	sess, hostID, err := reg.CreateSession("Host", Settings{})
	if err != nil {
		t.Fatal(err)
	}
	sess.AddPlayer(hostID, "Host")

	reg.BindConnection("conn-1", hostID, sess.ID)
	c, ok := reg.Lookup("conn-1")
	if !ok || c.PlayerID != hostID || c.SessionID != sess.ID {
		t.Fatalf("Lookup returned %+v, %v", c, ok)
	}

	reg.UnbindConnection("conn-1")
	if _, ok := reg.Lookup("conn-1"); ok {
		t.Error("binding survived unbind")
	}
	if sess.ConnectedCount() != 0 {
		t.Errorf("connected count = %d, want 0 after unbind", sess.ConnectedCount())
	}

	// Unbinding an unknown connection is a no-op.
	reg.UnbindConnection("conn-unknown")
}

func TestUnbindPlayerDropsAllConnections(t *testing.T) {
	reg := newTestRegistry()
	sess, hostID, err := reg.CreateSession("Host", Settings{})
	if err != nil {
		t.Fatal(err)
	}
	sess.AddPlayer(hostID, "Host")

	reg.BindConnection("conn-1", hostID, sess.ID)
	reg.BindConnection("conn-2", hostID, sess.ID)
	reg.UnbindPlayer(sess.ID, hostID)

	for _, id := range []string{"conn-1", "conn-2"} {
		if _, ok := reg.Lookup(id); ok {
			t.Errorf("%s still bound after UnbindPlayer", id)
		}
	}
}

func TestReclaimIdle(t *testing.T) {
	reg := newTestRegistry()

	idle, idleHost, err := reg.CreateSession("Idle", Settings{})
	if err != nil {
		t.Fatal(err)
	}
	idle.AddPlayer(idleHost, "Idle")
	if err := idle.MarkConnected(idleHost, false, ""); err != nil {
		t.Fatal(err)
	}
	reg.BindConnection("conn-idle", idleHost, idle.ID)

	busy, busyHost, err := reg.CreateSession("Busy", Settings{})
	if err != nil {
		t.Fatal(err)
	}
	busy.AddPlayer(busyHost, "Busy")

	if got := reg.ReclaimIdle(); got != 1 {
		t.Fatalf("ReclaimIdle = %d, want 1", got)
	}
	if _, err := reg.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session still resolvable: %v", err)
	}
	if _, ok := reg.Lookup("conn-idle"); ok {
		t.Error("stale connection binding survived reclamation")
	}
	if _, err := reg.Get(busy.ID); err != nil {
		t.Errorf("busy session was reclaimed: %v", err)
	}
}

func TestRemoveFinishedSession(t *testing.T) {
	reg := newTestRegistry()
	sess, _, err := reg.CreateSession("Host", Settings{})
	if err != nil {
		t.Fatal(err)
	}

	reg.remove(sess.ID)
	if reg.SessionCount() != 0 {
		t.Errorf("session count = %d, want 0", reg.SessionCount())
	}

	// Removing twice is harmless.
	reg.remove(sess.ID)
}

func TestRandomCodeUsesAlphabet(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := randomCode(codeLength)
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected some variety across generated codes")
	}
}
