package backend

import (
	"strings"
	"testing"

	"github.com/MrEthical07/dealAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   password.DefaultMinLength,
	}
	cfg.SignInMaxAttempts = 3
	return cfg
}

func newTestService(t *testing.T, mutate func(*Config)) (*Service, *MemoryMailer, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	mailer := NewMemoryMailer()
	svc, err := New(rdb, cfg, WithMailer(mailer))
	require.NoError(t, err)
	return svc, mailer, mr
}
