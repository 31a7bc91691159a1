package utils // package utils provides helpers for minting operator tokens

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// ErrEmptySubject is returned when a token is requested without an operator.
var ErrEmptySubject = errors.New("token subject is required")

// AccessToken is a signed JWT together with its expiry.  The token goes in
// the Authorization header of back-office requests.
type AccessToken struct {
    Token string    `json:"token"`
    Exp   time.Time `json:"expires_at"`
}

// NewAccessToken signs an HS256 JWT for an operator.  The subject is the
// operator identity recorded as restored_by; role must be one the router
// accepts (ADMIN or STAFF).  ttlMin is the lifetime in minutes.
func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
    subject = strings.TrimSpace(subject)
    if subject == "" {
        return AccessToken{}, ErrEmptySubject
    }
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": strings.ToUpper(role),
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
