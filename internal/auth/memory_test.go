package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreCreateAndVerify(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	exists, err := s.UsernameExists(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("expected alice to not exist yet")
	}

	if err := s.CreateUser(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("create error: %v", err)
	}

	exists, err = s.UsernameExists(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected alice to exist")
	}

	ok, err := s.VerifyCredentials(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if !ok {
		t.Error("expected correct credentials to verify")
	}

	ok, err = s.VerifyCredentials(ctx, "alice", "wrong-pass")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if ok {
		t.Error("expected wrong password to fail")
	}

	ok, err = s.VerifyCredentials(ctx, "nobody", "secret1")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if ok {
		t.Error("expected unknown user to fail")
	}
}

func TestMemoryStoreDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateUser(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("create error: %v", err)
	}
	// Same username with a different password still fails.
	if err := s.CreateUser(ctx, "alice", "other-password"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("expected 1 record, got %d", s.Count())
	}
}

func TestMemoryStoreConcurrentCreate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.CreateUser(ctx, "alice", "secret1")
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrUsernameTaken) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly 1 create to succeed, got %d", succeeded)
	}
}
