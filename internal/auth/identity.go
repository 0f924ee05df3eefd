package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims 平台 JWT 声明
// sub 为请求方实体 ID,org 为组织 ID
type IdentityClaims struct {
	OrganizationID string   `json:"org"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator 平台 Token 验证器,HMAC 签名
type TokenValidator struct {
	issuer string
	secret []byte
}

// NewTokenValidator 创建 Token 验证器
func NewTokenValidator(issuer string, secret string) *TokenValidator {
	return &TokenValidator{
		issuer: issuer,
		secret: []byte(secret),
	}
}

// Issuer 返回 Issuer
func (v *TokenValidator) Issuer() string {
	return v.issuer
}

// ValidateToken 验证 JWT Token
func (v *TokenValidator) ValidateToken(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	// 验证 issuer
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("invalid issuer")
	}

	// 验证过期时间
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	if claims.OrganizationID == "" {
		return nil, errors.New("missing organization")
	}

	return claims, nil
}

// IssueToken 签发 JWT Token,主要供测试和本地联调使用
func (v *TokenValidator) IssueToken(subject string, orgID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &IdentityClaims{
		OrganizationID: orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// IdentityMiddleware 身份认证中间件
// 优先使用 Bearer Token;trustHeaders 开启时允许网关通过
// X-User-ID / X-Organization-ID 头透传身份,供内网部署使用
func IdentityMiddleware(validator *TokenValidator, trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")

		// 移除 "Bearer " 前缀
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		if token != "" {
			claims, err := validator.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    401,
					"message": "invalid token",
					"detail":  err.Error(),
				})
				c.Abort()
				return
			}

			// 将身份信息存储到上下文
			c.Set("user_id", claims.Subject)
			c.Set("organization_id", claims.OrganizationID)
			c.Set("email", claims.Email)
			c.Set("roles", claims.Roles)

			c.Next()
			return
		}

		if trustHeaders {
			userID := c.GetHeader("X-User-ID")
			orgID := c.GetHeader("X-Organization-ID")
			if userID != "" && orgID != "" {
				c.Set("user_id", userID)
				c.Set("organization_id", orgID)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "missing authorization header",
		})
		c.Abort()
	}
}

// CurrentUser 从上下文取当前用户 ID
func CurrentUser(c *gin.Context) string {
	return c.GetString("user_id")
}

// CurrentOrganization 从上下文取当前组织 ID
func CurrentOrganization(c *gin.Context) string {
	return c.GetString("organization_id")
}
