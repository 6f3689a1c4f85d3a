package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
)

// tokenTTL 令牌有效期
const tokenTTL = 24 * time.Hour

// InterfaceJWTService 定义JWT服务接口
type InterfaceJWTService interface {
	GenerateToken(adminID uint, username, role string) (string, error)
	ValidateToken(tokenString string) (*jwt.Token, error)
	ExtractClaims(tokenString string) (*JWTClaims, error)
	Login(username, password string) (*LoginResult, error)
}

// LoginResult 表示登录结果
type LoginResult struct {
	Token     string    `json:"token"`
	AdminID   uint      `json:"admin_id"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTService 提供JWT相关服务
type JWTService struct {
	secretKey string
	issuer    string
	DB        *gorm.DB
	Clock     clock.Clock
}

// JWTClaims 定义JWT令牌的声明结构
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTService 创建一个新的JWT服务
func NewJWTService(cfg *config.Config, db *gorm.DB, clk clock.Clock) InterfaceJWTService {
	return &JWTService{
		secretKey: cfg.JWTSecretKey,
		issuer:    "hrm-attendance",
		DB:        db,
		Clock:     clk,
	}
}

// 1 GenerateToken 生成JWT令牌
func (s *JWTService) GenerateToken(adminID uint, username, role string) (string, error) {
	now := s.Clock.Now()
	claims := &JWTClaims{
		AdminID:  adminID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// 2 ValidateToken 验证JWT令牌
func (s *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
}

// 3 ExtractClaims 从令牌中提取声明
func (s *JWTService) ExtractClaims(tokenString string) (*JWTClaims, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}

// 4 Login 管理员登录
func (s *JWTService) Login(username, password string) (*LoginResult, error) {
	var admin models.Admin
	if err := s.DB.Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if admin.Status != "" && admin.Status != "active" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	role := admin.Role
	if role == "" {
		role = "admin"
	}
	token, err := s.GenerateToken(admin.ID, admin.Username, role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		AdminID:   admin.ID,
		Role:      role,
		Username:  admin.Username,
		ExpiresAt: s.Clock.Now().Add(tokenTTL),
	}, nil
}
