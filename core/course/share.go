package course

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
)

var ErrInvalidShareToken = errors.New("invalid or expired share link")

// ShareSigner issues and verifies the signed tokens embedded in course share links.
type ShareSigner struct {
	key        []byte
	issuer     string
	baseURL    string
	expiration time.Duration
	nowFunc    func() time.Time
}

func NewShareSigner(conf *core.Config) *ShareSigner {
	return &ShareSigner{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		baseURL:    strings.TrimRight(conf.FrontendBaseURL, "/"),
		expiration: conf.Share.Expiration,
		nowFunc:    time.Now,
	}
}

// Token signs a HS256 JWT whose subject is the course id.
func (s *ShareSigner) Token(courseID string) (string, error) {
	now := s.nowFunc()
	claims := jwt.StandardClaims{
		Issuer:   s.issuer,
		Subject:  courseID,
		IssuedAt: now.Unix(),
	}
	if s.expiration > 0 {
		claims.ExpiresAt = now.Add(s.expiration).Unix()
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, "signing share token")
	}
	return ss, nil
}

func (s *ShareSigner) URL(token string) string {
	return s.baseURL + "/share/" + token
}

// Verify returns the course id carried by a valid token.
func (s *ShareSigner) Verify(token string) (string, error) {
	claims := new(jwt.StandardClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", core.NewValidationError(ErrInvalidShareToken, core.FieldError{Field: "token", Error: ErrInvalidShareToken.Error()})
	}
	return claims.Subject, nil
}
