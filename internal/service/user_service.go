package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/auth"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/config"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/datamodels/user"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid username or password")

type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

func newSalt() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Register 注册新买家
func (s *UserService) Register(ctx context.Context, username, password, nickname string) (*user.User, error) {
	u := &user.User{
		Username: username,
		Nickname: nickname,
		Salt:     newSalt(),
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", ErrInvalidCredentials
	}
	return auth.GenerateToken(s.jwt, u.ID, u.Username, u.IsAdmin)
}
