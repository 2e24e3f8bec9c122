package identity

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"go.uber.org/zap"
)

// tokenExpirySkew renews the service account token this long before the
// provider would reject it.
const tokenExpirySkew = 30 * time.Second

// KeycloakStore implements Store against a Keycloak realm using a service
// account (client credentials grant).
type KeycloakStore struct {
	logger       *zap.SugaredLogger
	client       *gocloak.GoCloak
	realm        string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type KeycloakOptions struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
	InsecureTLS  bool
}

func NewKeycloakStore(logger *zap.SugaredLogger, o KeycloakOptions) *KeycloakStore {
	client := gocloak.NewClient(o.URL)
	if o.InsecureTLS {
		// #nosec G402 -- test and development deployments only
		client.RestyClient().SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return &KeycloakStore{
		logger:       logger,
		client:       client,
		realm:        o.Realm,
		clientID:     o.ClientID,
		clientSecret: o.ClientSecret,
	}
}

func (s *KeycloakStore) serviceToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}
	jwt, err := s.client.LoginClient(ctx, s.clientID, s.clientSecret, s.realm)
	if err != nil {
		return "", translateError(err)
	}
	s.token = jwt.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(jwt.ExpiresIn)*time.Second - tokenExpirySkew)
	return s.token, nil
}

func (s *KeycloakStore) LookupByID(ctx context.Context, id string) (*User, error) {
	token, err := s.serviceToken(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.client.GetUserByID(ctx, token, s.realm, id)
	if err != nil {
		return nil, translateError(err)
	}
	return fromKeycloakUser(user), nil
}

func (s *KeycloakStore) LookupByEmail(ctx context.Context, email string) (*User, error) {
	token, err := s.serviceToken(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.client.GetUsers(ctx, token, s.realm, gocloak.GetUsersParams{
		Email: gocloak.StringP(email),
		Exact: gocloak.BoolP(true),
	})
	if err != nil {
		return nil, translateError(err)
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return fromKeycloakUser(users[0]), nil
}

func (s *KeycloakStore) Create(ctx context.Context, email, password string) (string, error) {
	token, err := s.serviceToken(ctx)
	if err != nil {
		return "", err
	}
	id, err := s.client.CreateUser(ctx, token, s.realm, gocloak.User{
		Username: gocloak.StringP(email),
		Email:    gocloak.StringP(email),
		Enabled:  gocloak.BoolP(true),
	})
	if err != nil {
		return "", translateError(err)
	}
	if err := s.client.SetPassword(ctx, token, id, s.realm, password, false); err != nil {
		return id, translateError(err)
	}
	return id, nil
}

func (s *KeycloakStore) Delete(ctx context.Context, id string) error {
	token, err := s.serviceToken(ctx)
	if err != nil {
		return err
	}
	err = s.client.DeleteUser(ctx, token, s.realm, id)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, ErrNotFound) {
			// already gone
			return nil
		}
		return err
	}
	return nil
}

func (s *KeycloakStore) AttachClaims(ctx context.Context, id string, claims map[string]string) error {
	token, err := s.serviceToken(ctx)
	if err != nil {
		return err
	}
	user, err := s.client.GetUserByID(ctx, token, s.realm, id)
	if err != nil {
		return translateError(err)
	}

	attributes := map[string][]string{}
	if user.Attributes != nil {
		attributes = *user.Attributes
	}
	for k, v := range claims {
		attributes[k] = []string{v}
	}
	user.Attributes = &attributes

	if err := s.client.UpdateUser(ctx, token, s.realm, *user); err != nil {
		return translateError(err)
	}
	return nil
}

func (s *KeycloakStore) VerifyCredential(ctx context.Context, token string) (string, error) {
	info, err := s.client.GetUserInfo(ctx, token, s.realm)
	if err != nil {
		return "", translateError(err)
	}
	if info.Sub == nil || *info.Sub == "" {
		return "", fmt.Errorf("userinfo response missing subject")
	}
	return *info.Sub, nil
}

func fromKeycloakUser(u *gocloak.User) *User {
	user := &User{
		ID:     gocloak.PString(u.ID),
		Email:  gocloak.PString(u.Email),
		Claims: map[string]string{},
	}
	name := gocloak.PString(u.FirstName)
	if last := gocloak.PString(u.LastName); last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	user.FullName = name
	if u.Enabled != nil {
		user.Disabled = !*u.Enabled
	}
	if u.Attributes != nil {
		for k, values := range *u.Attributes {
			if len(values) > 0 {
				user.Claims[k] = values[0]
			}
		}
	}
	return user
}

// translateError maps provider transport and API errors onto the package's
// error taxonomy so callers never see gocloak types.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if code := apiErrorCode(err); code != 0 {
		switch {
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
		case code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return err
}

func apiErrorCode(err error) int {
	var apiErrPtr *gocloak.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	var apiErr gocloak.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
