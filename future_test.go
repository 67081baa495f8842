package dealAuth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFutureReturnsResult(t *testing.T) {
	f := newFakeRemote()
	f.addUser("a@b.co", "secret1", RolePartner)
	m := newTestManager(t, f)

	fut := Go(context.Background(), func(ctx context.Context) (User, error) {
		return m.SignIn(ctx, "a@b.co", "secret1", RolePartner)
	})

	select {
	case <-fut.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future never completed")
	}
	user, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.Role != RolePartner {
		t.Fatalf("role = %v", user.Role)
	}
}

func TestFutureWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	fut := Go(context.Background(), func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := fut.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}

	close(release)
	v, err := fut.Wait(context.Background())
	if err != nil || v != 7 {
		t.Fatalf("Wait = %d, %v", v, err)
	}
}

func TestFutureCarriesError(t *testing.T) {
	fut := Go(context.Background(), func(context.Context) (string, error) {
		return "", ErrInvalidCredentials
	})
	if _, err := fut.Wait(context.Background()); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Wait = %v", err)
	}
}
