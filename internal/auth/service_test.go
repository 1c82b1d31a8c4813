package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/models/dto"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/hongminglow/taskql/internal/storage/memory"
)

type recordedOutcomes struct {
	logins, registrations, verifications []string
}

func (r *recordedOutcomes) RecordLogin(o string)             { r.logins = append(r.logins, o) }
func (r *recordedOutcomes) RecordRegistration(o string)      { r.registrations = append(r.registrations, o) }
func (r *recordedOutcomes) RecordTokenVerification(o string) { r.verifications = append(r.verifications, o) }

// countingStore fails the test if validation lets a request reach the store.
type countingStore struct {
	storage.UserStore
	calls int
}

func (c *countingStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	c.calls++
	return c.UserStore.CreateUser(ctx, u)
}

func (c *countingStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	c.calls++
	return c.UserStore.FindUserByEmail(ctx, email)
}

type failingStore struct{ storage.UserStore }

var errStoreDown = errors.New("store down")

func (failingStore) FindUserByID(context.Context, string) (models.User, error) {
	return models.User{}, errStoreDown
}

func newTestService(t *testing.T, users storage.UserStore) (*Service, *recordedOutcomes) {
	t.Helper()
	rec := &recordedOutcomes{}
	svc, err := NewService(users, newTestHasher(t), newTestTokens(t, testSecret), nil, rec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, rec
}

var alice = dto.RegisterRequest{Firstname: "Alice", Lastname: "Example", Email: "a@x.com", Password: "pw123456"}

func TestRegister_HashesPasswordAndRejectsDuplicate(t *testing.T) {
	svc, rec := newTestService(t, memory.NewStore())
	ctx := context.Background()

	user, err := svc.Register(ctx, alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("missing id")
	}
	if user.PasswordHash == "" || user.PasswordHash == alice.Password {
		t.Fatalf("password stored in clear: %q", user.PasswordHash)
	}

	again := alice
	again.Email = "  A@X.com "
	if _, err := svc.Register(ctx, again); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
	if len(rec.registrations) != 2 || rec.registrations[0] != OutcomeSuccess || rec.registrations[1] != OutcomeDuplicate {
		t.Fatalf("registration outcomes = %v", rec.registrations)
	}
}

func TestRegister_ValidationHappensBeforeStore(t *testing.T) {
	store := &countingStore{UserStore: memory.NewStore()}
	svc, _ := newTestService(t, store)

	cases := map[string]dto.RegisterRequest{
		"empty password": {Firstname: "A", Lastname: "B", Email: "a@x.com"},
		"short password": {Firstname: "A", Lastname: "B", Email: "a@x.com", Password: "short"},
		"bad email":      {Firstname: "A", Lastname: "B", Email: "not-an-email", Password: "pw123456"},
		"display name":   {Firstname: "A", Lastname: "B", Email: "Bob <b@x.com>", Password: "pw123456"},
		"no firstname":   {Lastname: "B", Email: "a@x.com", Password: "pw123456"},
		"no lastname":    {Firstname: "A", Email: "a@x.com", Password: "pw123456"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), req); !IsValidation(err) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
	if _, err := svc.Login(context.Background(), "a@x.com", ""); !IsValidation(err) {
		t.Fatalf("login empty password: want ValidationError, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("store touched %d times by invalid input", store.calls)
	}
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	svc, rec := newTestService(t, memory.NewStore())
	ctx := context.Background()
	if _, err := svc.Register(ctx, alice); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "a@x.com", "pw654321")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "pw123456")

	if !errors.Is(wrongPassword, ErrBadCredentials) || !errors.Is(unknownEmail, ErrBadCredentials) {
		t.Fatalf("want ErrBadCredentials for both, got %v / %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("errors differ: %q vs %q", wrongPassword, unknownEmail)
	}
	for _, o := range rec.logins {
		if o != OutcomeBadCredentials {
			t.Fatalf("login outcomes = %v", rec.logins)
		}
	}
}

func TestLogin_RejectsPasswordLongerThanBcryptLimit(t *testing.T) {
	store := &countingStore{UserStore: memory.NewStore()}
	svc, rec := newTestService(t, store)
	ctx := context.Background()

	long := alice
	long.Password = strings.Repeat("a", maxPasswordBytes)
	if _, err := svc.Register(ctx, long); err != nil {
		t.Fatalf("Register: %v", err)
	}
	calls := store.calls

	_, err := svc.Login(ctx, long.Email, long.Password+"totally-different-suffix")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "password" {
		t.Fatalf("want password ValidationError, got %v", err)
	}
	if store.calls != calls {
		t.Fatal("overlong password reached the store")
	}
	if got := rec.logins[len(rec.logins)-1]; got != OutcomeInvalidInput {
		t.Fatalf("login outcome = %q", got)
	}

	if _, err := svc.Login(ctx, long.Email, long.Password); err != nil {
		t.Fatalf("exact 72-byte password: %v", err)
	}
}

func TestLoginThenAuthenticate_ResolvesRegisteredIdentity(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore())
	ctx := context.Background()

	user, err := svc.Register(ctx, alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp, err := svc.Login(ctx, "A@x.com", alice.Password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" || resp.Message != LoginMessage {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	got, err := svc.Authenticate(ctx, resp.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("identity = %s, want %s", got.ID, user.ID)
	}
}

func TestAuthenticate_DeletedIdentityIsUnauthorized(t *testing.T) {
	store := memory.NewStore()
	svc, rec := newTestService(t, store)
	ctx := context.Background()

	user, err := svc.Register(ctx, alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp, err := svc.Login(ctx, alice.Email, alice.Password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	store.DeleteUser(user.ID)

	if _, err := svc.Authenticate(ctx, resp.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if last := rec.verifications[len(rec.verifications)-1]; last != OutcomeUnknownIdentity {
		t.Fatalf("verification outcome = %s", last)
	}
}

func TestAuthenticate_TokenErrorsWrapUnauthorized(t *testing.T) {
	svc, rec := newTestService(t, memory.NewStore())

	token, err := newTestTokens(t, "some-other-secret-0123456").Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Authenticate(context.Background(), token)
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrBadSignature) {
		t.Fatalf("want ErrUnauthorized wrapping ErrBadSignature, got %v", err)
	}
	if rec.verifications[0] != OutcomeBadSignature {
		t.Fatalf("verification outcome = %v", rec.verifications)
	}
}

func TestAuthenticate_StoreFailureIsNotUnauthorized(t *testing.T) {
	svc, _ := newTestService(t, failingStore{UserStore: memory.NewStore()})

	token, err := newTestTokens(t, testSecret).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = svc.Authenticate(context.Background(), token)
	if errors.Is(err, ErrUnauthorized) || !errors.Is(err, errStoreDown) {
		t.Fatalf("want raw store error, got %v", err)
	}
}

func TestRequireIdentity(t *testing.T) {
	if _, err := RequireIdentity(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous: want ErrUnauthorized, got %v", err)
	}
	ctx := WithRequestContext(context.Background(), RequestContext{Identity: models.User{ID: "u1"}})
	user, err := RequireIdentity(ctx)
	if err != nil || user.ID != "u1" {
		t.Fatalf("RequireIdentity = %+v, %v", user, err)
	}
}
