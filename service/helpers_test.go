package service_test

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/internal/eth"
)

const testDomain = "localhost:3000"

// memUsers implements ports.UserDirectory for testing.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*core.User
	err    error
	raceOn string // address a phantom concurrent sign-in claims on the next Create
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*core.User)}
}

func (m *memUsers) FindByAddress(_ context.Context, address string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.SiweAddress == address {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, user *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.raceOn != "" && m.raceOn == user.SiweAddress {
		m.byID["winner"] = &core.User{ID: "winner", SiweAddress: user.SiweAddress, Plan: core.DefaultPlan}
		m.raceOn = ""
	}
	for _, u := range m.byID {
		if user.SiweAddress != "" && u.SiweAddress == user.SiweAddress {
			return core.ErrUserExists
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return core.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher implements ports.EventPublisher for testing.
type recordingPublisher struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
	err     error
}

func (p *recordingPublisher) PublishLogin(_ context.Context, userID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, userID)
	return p.err
}

func (p *recordingPublisher) PublishLogout(_ context.Context, _, tokenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, tokenID)
	return p.err
}

// recordingMetrics implements ports.AuthMetrics for testing.
type recordingMetrics struct {
	mu       sync.Mutex
	issued   int
	outcomes []string
	rejected []string
}

func (m *recordingMetrics) RecordNonceIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
}

func (m *recordingMetrics) RecordVerify(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) RecordSessionRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, reason)
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string // checksummed, as wallets render it
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w wallet) lower() string {
	return strings.ToLower(w.address)
}

func (w wallet) sign(t *testing.T, msg string) string {
	t.Helper()
	sig, err := eth.SignPersonal([]byte(msg), w.key)
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func siweMessage(domain, address, nonce string) string {
	return domain + " wants you to sign in with your Ethereum account:\n" +
		address + "\n" +
		"\n" +
		"Sign in to nocode\n" +
		"\n" +
		"URI: http://" + domain + "\n" +
		"Version: 1\n" +
		"Chain ID: 31337\n" +
		"Nonce: " + nonce + "\n" +
		"Issued At: 2023-11-14T22:13:20Z"
}
