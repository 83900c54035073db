package ldapauth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
)

const (
	TokenExpiresPeriod        = 30 * time.Minute
	RefreshTokenExpiresPeriod = 7 * 24 * time.Hour

	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

type Token struct {
	Claims       *TokenClaims
	SignedString string
	Type         string
}

type TokenClaims struct {
	TokenType string `json:"token_type"`
	UserID    string `json:"user_id"`
	jwt.RegisteredClaims
}

// Генерация JWT ключа
func GenJwtToken(secret []byte, tokenType string, userID string) (*Token, error) {
	period := TokenExpiresPeriod
	if tokenType == refreshTokenType {
		period = RefreshTokenExpiresPeriod
	}

	now := time.Now()
	claims := &TokenClaims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%x", dao.GenUUID().Bytes()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(period)),
		},
	}
	signedString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, err
	}

	return &Token{
		Claims:       claims,
		SignedString: signedString,
		Type:         tokenType,
	}, nil
}

// ParseToken проверяет подпись, срок действия и тип токена.
func ParseToken(secret []byte, signed string, tokenType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: unexpected token type %q", jwt.ErrTokenInvalidClaims, claims.TokenType)
	}
	if claims.UserID == "" {
		return nil, errors.New("token without user")
	}
	return claims, nil
}

// Генерация пары ключей доступа
func createAccessToken(secret []byte, userID string) (*Token, *Token, error) {
	ta, err := GenJwtToken(secret, accessTokenType, userID)
	if err != nil {
		return nil, nil, err
	}

	tr, err := GenJwtToken(secret, refreshTokenType, userID)
	if err != nil {
		return nil, nil, err
	}
	return ta, tr, nil
}

func setAuthCookies(c echo.Context, accessToken *Token, refreshToken *Token) {
	c.SetCookie(authCookie("access_token", accessToken.SignedString, time.Now().Add(TokenExpiresPeriod)))
	c.SetCookie(authCookie("refresh_token", refreshToken.SignedString, time.Now().Add(RefreshTokenExpiresPeriod)))
}

func clearAuthCookies(c echo.Context) {
	for _, name := range []string{"access_token", "refresh_token"} {
		cookie := authCookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

func authCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteNoneMode,
		Expires:  expires,
	}
}
