package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/identity"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// AuthUsecase は外部IDプロバイダのトークン検証とローカルユーザーの同期。
// パスワードはこちらでは持たない。
type AuthUsecase struct {
	verifier    identity.Verifier
	userRepo    repo.UserRepository
	adminEmails map[string]struct{}
	log         *zap.Logger
}

func NewAuthUsecase(verifier identity.Verifier, userRepo repo.UserRepository, adminEmails []string, log *zap.Logger) *AuthUsecase {
	m := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			m[e] = struct{}{}
		}
	}
	return &AuthUsecase{verifier: verifier, userRepo: userRepo, adminEmails: m, log: log}
}

type UserOutput struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// SyncUser はトークンを検証し、ローカルユーザーを作成または更新する。
// 初回ログインで行を作り、管理者メール一覧に載っていればADMINに昇格させる。
func (u *AuthUsecase) SyncUser(ctx context.Context, rawToken string) (UserOutput, error) {
	claims, err := u.verifier.Verify(ctx, rawToken)
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			return UserOutput{}, NewHTTPError(http.StatusServiceUnavailable, CodeProviderUnavailable, "identity provider unavailable")
		}
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "invalid token")
	}

	user, err := u.userRepo.FindBySubjectUID(ctx, claims.Subject)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	now := time.Now()
	if user == nil {
		role := model.RoleUser
		if _, ok := u.adminEmails[strings.ToLower(claims.Email)]; ok {
			role = model.RoleAdmin
		}
		user = &model.User{
			SubjectUID:  claims.Subject,
			Email:       claims.Email,
			Name:        claims.Name,
			Role:        role,
			IsActive:    true,
			LastLoginAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := u.userRepo.Create(ctx, user); err != nil {
			return UserOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		u.log.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	} else {
		// プロフィールと最終ログインを追従
		user.Email = claims.Email
		if claims.Name != "" {
			user.Name = claims.Name
		}
		if _, ok := u.adminEmails[strings.ToLower(claims.Email)]; ok {
			user.Role = model.RoleAdmin
		}
		user.LastLoginAt = &now
		user.UpdatedAt = now
		if err := u.userRepo.Update(ctx, user); err != nil {
			return UserOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
	}

	if !user.IsActive {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "account disabled")
	}

	return UserOutput{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}, nil
}
