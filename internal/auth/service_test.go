package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/askora/askora/internal/platform/httpx"
)

type mockRepo struct {
	mu       sync.Mutex
	accounts map[string]*Account
	nextID   int64

	findErr   error
	createErr error
	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{accounts: make(map[string]*Account), nextID: 1}
}

func (m *mockRepo) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	account, ok := m.accounts[NormalizeEmail(email)]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *mockRepo) CreateAccount(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.accounts[account.Email]; exists {
		return httpx.ErrDuplicate
	}
	account.ID = m.nextID
	m.nextID++
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	m.accounts[account.Email] = &copied
	return nil
}

func (m *mockRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, account := range m.accounts {
		if account.ID == id {
			account.LastLoginAt = &at
			return nil
		}
	}
	return httpx.ErrNotFound
}

var _ Repository = (*mockRepo)(nil)

func newTestService(t *testing.T, repo Repository, rateLimit int) *Service {
	t.Helper()
	tokens, err := NewTokenService(testTokenConfig())
	require.NoError(t, err)
	rateStore := NewMemoryRateLimitStore(100)
	return NewService(ServiceParams{
		Repo:            repo,
		Hasher:          NewHasher(bcrypt.MinCost),
		RegisterLimiter: NewLimiter(rateStore, "register", time.Hour),
		LoginLimiter:    NewLimiter(rateStore, "login", 15*time.Minute),
		Lockouts:        NewTracker(NewMemoryLockoutStore(), 5, 30*time.Minute),
		Tokens:          tokens,
		RegisterLimit:   rateLimit,
		LoginLimit:      rateLimit,
	})
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		FullName:        "Jane Doe",
		Email:           "Jane@X.com",
		Password:        "Abc123!@",
		ConfirmPassword: "Abc123!@",
	}
}

func TestServiceRegister(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 5)
	ctx := context.Background()

	session, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)
	require.Equal(t, "jane@x.com", session.Account.Email, "email must be normalized")
	require.NotEqual(t, "Abc123!@", session.Account.PasswordHash)
	require.NotEmpty(t, session.Token)

	claims, err := svc.Tokens().Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, "jane@x.com", claims.Email)

	view := session.Account.View()
	require.Equal(t, session.Account.ID, view.ID)
}

func TestServiceRegisterDuplicate(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 10)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegisterInput(), "ip1")
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	// A differently-cased spelling of the same address is still a duplicate.
	input := validRegisterInput()
	input.Email = " JANE@x.COM "
	_, err = svc.Register(ctx, input, "ip1")
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestServiceRegisterRateLimited(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 2)
	ctx := context.Background()

	input := validRegisterInput()
	_, err := svc.Register(ctx, input, "ip1")
	require.NoError(t, err)
	input.Email = "john@x.com"
	_, err = svc.Register(ctx, input, "ip1")
	require.NoError(t, err)
	input.Email = "jim@x.com"
	_, err = svc.Register(ctx, input, "ip1")
	require.ErrorIs(t, err, httpx.ErrRateLimited)
}

func TestServiceRegisterAndLoginQuotasIndependent(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 5)
	ctx := context.Background()

	// Registrations must not consume the same client's login quota.
	emails := []string{"jane@x.com", "john@x.com", "jim@x.com"}
	for _, email := range emails {
		input := validRegisterInput()
		input.Email = email
		_, err := svc.Register(ctx, input, "ip1")
		require.NoError(t, err)
	}
	for _, email := range emails {
		session, err := svc.Login(ctx, LoginInput{Email: email, Password: "Abc123!@"}, "ip1")
		require.NoError(t, err)
		require.NotEmpty(t, session.Token)
	}
}

func TestServiceLoginSuccess(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 10)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)

	session, err := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.NotNil(t, session.Account.LastLoginAt)

	stored, err := repo.FindAccountByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
}

func TestServiceLoginFailuresIndistinguishable(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 10)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Wrong123!@"}, "ip1")
	_, unknownAccount := svc.Login(ctx, LoginInput{Email: "nobody@x.com", Password: "Wrong123!@"}, "ip1")

	require.ErrorIs(t, wrongPassword, httpx.ErrUnauthorized)
	require.ErrorIs(t, unknownAccount, httpx.ErrUnauthorized)
	require.Equal(t, wrongPassword.Error(), unknownAccount.Error(),
		"account-absent and wrong-password failures must be identical")
}

func TestServiceLoginLockout(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 100)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Wrong123!@"}, "ip1")
		require.ErrorIs(t, err, httpx.ErrUnauthorized)
	}

	// Correct password, but the pair is locked.
	_, err = svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.ErrorIs(t, err, httpx.ErrLocked)

	// Same account from a different client is unaffected.
	session, err := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip2")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
}

func TestServiceLoginSuccessClearsFailures(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 100)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Wrong123!@"}, "ip1")
		require.ErrorIs(t, err, httpx.ErrUnauthorized)
	}
	_, err = svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.NoError(t, err)

	// Four more failures only reach count 4; not locked.
	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Wrong123!@"}, "ip1")
		require.ErrorIs(t, err, httpx.ErrUnauthorized)
	}
	_, err = svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.NoError(t, err)
}

func TestServiceStoreFailureIsTransient(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = errors.New("connection refused")
	svc := newTestService(t, repo, 10)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.ErrorIs(t, err, httpx.ErrTransient)
	require.NotErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Register(ctx, validRegisterInput(), "ip2")
	require.ErrorIs(t, err, httpx.ErrTransient)
}

type recordingNotifier struct {
	logins   int
	signouts int
}

func (n *recordingNotifier) LoginRecorded(context.Context, *Account, string) error {
	n.logins++
	return nil
}

func (n *recordingNotifier) SignedOut(context.Context, string) error {
	n.signouts++
	return nil
}

type failingNotifier struct{}

func (failingNotifier) LoginRecorded(context.Context, *Account, string) error {
	return errors.New("queue down")
}

func (failingNotifier) SignedOut(context.Context, string) error {
	return errors.New("queue down")
}

func TestServiceNotifications(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 10)
	notifier := &recordingNotifier{}
	svc.notifier = notifier
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegisterInput(), "ip1")
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.NoError(t, err)
	require.Equal(t, 1, notifier.logins)

	svc.Logout(ctx, "ip1")
	require.Equal(t, 1, notifier.signouts)
}

func TestServiceLogoutSurvivesNotifierFailure(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, 10)
	svc.notifier = failingNotifier{}

	// Must not panic or surface the failure.
	svc.Logout(context.Background(), "ip1")

	_, err := svc.Register(context.Background(), validRegisterInput(), "ip1")
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@x.com", Password: "Abc123!@"}, "ip1")
	require.NoError(t, err, "login must succeed even when notification fails")
}
