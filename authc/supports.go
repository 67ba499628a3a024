package authc

type (
	BearerToken struct {
		value string
	}

	UsernamePasswordToken struct {
		username string
		password string
		remember bool
	}
)

var _ Token = (*BearerToken)(nil)

// NewBearerToken wraps an opaque bearer credential, e.g. a JWT.
// Bearer tokens never request remember-me retention
func NewBearerToken(value string) Token {
	return &BearerToken{value: value}
}

func (bt *BearerToken) Principal() string {
	return bt.value
}

func (bt *BearerToken) Credentials() string {
	return bt.value
}

func (bt *BearerToken) RememberMe() bool {
	return false
}

var _ Token = (*UsernamePasswordToken)(nil)

func NewUsernamePasswordToken(username string, password string) Token {
	return &UsernamePasswordToken{username: username, password: password}
}

// NewRememberMeToken is a UsernamePasswordToken flagged for
// persistent identity retention
func NewRememberMeToken(username string, password string) Token {
	return &UsernamePasswordToken{username: username, password: password, remember: true}
}

func (upt *UsernamePasswordToken) Principal() string {
	return upt.username
}

func (upt *UsernamePasswordToken) Credentials() string {
	return upt.password
}

func (upt *UsernamePasswordToken) RememberMe() bool {
	return upt.remember
}
