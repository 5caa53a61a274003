package repository

import (
	"context"

	"app/internal/domain/model"
)

// 保存・取得を約束。見つからない場合は (nil, nil)。
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//外部IDプロバイダのsubjectから1件取得する。
	FindBySubjectUID(ctx context.Context, subjectUID string) (*model.User, error)
	// ユーザー情報の更新=>ロールの変更・最後のログイン更新など
	Update(ctx context.Context, user *model.User) error
}
