// Package content はコンテンツ計画の書き込み操作（作成・ステータス更新・削除）と
// プロジェクト管理のドメインロジックを提供する。
//
// 書き込み結果は呼び出し元へ返すが、画面上の一覧はライブ購読のスナップショットでのみ更新される。
// ストアの失敗は原因をログに出し、利用者には汎用メッセージのAPIErrorを返す。
package content

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/contentplan/internal/metrics"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/planner"
	"github.com/hitoshi/contentplan/internal/repository"
	"github.com/hitoshi/contentplan/internal/security"
)

// Service はコンテンツの書き込みゲートウェイ。
type Service struct {
	items     repository.ContentItemRepository
	projects  repository.ProjectRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceを生成する。collectorとloggerはnilの場合に無効化される。
func NewService(
	items repository.ContentItemRepository,
	projects repository.ProjectRepository,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		items:     items,
		projects:  projects,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
	}
}

// List はユーザーのコンテンツ一覧を date 降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.ContentItem, error) {
	items, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list content items",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return items, nil
}

// Create は入力を検証し、新しいコンテンツを書き込む。
// トピックが空の場合はストアを呼ばずに検証エラーを返す。
func (s *Service) Create(ctx context.Context, userID string, in model.NewContentItem) (*model.ContentItem, error) {
	item, apiErr := s.validate(userID, in)
	if apiErr != nil {
		s.metrics.RecordValidationRejected(metrics.OpCreate)
		return nil, apiErr
	}

	if item.ProjectID != "" {
		if !validID(item.ProjectID) {
			s.metrics.RecordValidationRejected(metrics.OpCreate)
			return nil, model.NewProjectNotFoundError(item.ProjectID)
		}
		project, err := s.projects.FindByID(ctx, userID, item.ProjectID)
		if err != nil {
			s.logFailure(metrics.OpCreate, userID, "", err)
			return nil, model.NewSaveFailedError()
		}
		if project == nil {
			s.metrics.RecordValidationRejected(metrics.OpCreate)
			return nil, model.NewProjectNotFoundError(item.ProjectID)
		}
	}

	start := time.Now()
	err := s.items.Create(ctx, item)
	s.metrics.RecordMutation(metrics.OpCreate, err, time.Since(start))
	if err != nil {
		s.logFailure(metrics.OpCreate, userID, item.ID, err)
		return nil, model.NewSaveFailedError()
	}

	s.logger.Info("content item created",
		slog.String("user_id", userID),
		slog.String("item_id", item.ID),
		slog.String("platform", string(item.Platform)),
	)
	return item, nil
}

func (s *Service) validate(userID string, in model.NewContentItem) (*model.ContentItem, *model.APIError) {
	topic := s.sanitizer.Sanitize(in.Topic)
	if topic == "" {
		return nil, model.NewTopicRequiredError()
	}
	if !in.Platform.Valid() {
		return nil, model.NewInvalidPlatformError(string(in.Platform))
	}
	status := in.Status
	if status == "" {
		status = model.StatusIdea
	}
	if !status.Valid() {
		return nil, model.NewInvalidStatusError(string(in.Status))
	}
	if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		return nil, model.NewInvalidDateError(in.Date)
	}
	link, err := security.NormalizeLink(in.Link)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	return &model.ContentItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProjectID: in.ProjectID,
		Date:      in.Date,
		Platform:  in.Platform,
		Topic:     topic,
		Status:    status,
		Link:      link,
	}, nil
}

// UpdateStatus はstatus列のみを書き換える。遷移に順序制約はない。
func (s *Service) UpdateStatus(ctx context.Context, userID, itemID string, status model.Status) error {
	if !status.Valid() {
		s.metrics.RecordValidationRejected(metrics.OpUpdateStatus)
		return model.NewInvalidStatusError(string(status))
	}
	if !validID(itemID) {
		s.metrics.RecordValidationRejected(metrics.OpUpdateStatus)
		return model.NewItemNotFoundError(itemID)
	}

	start := time.Now()
	err := s.items.UpdateStatus(ctx, userID, itemID, status)
	s.metrics.RecordMutation(metrics.OpUpdateStatus, err, time.Since(start))
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewItemNotFoundError(itemID)
	}
	if err != nil {
		s.logFailure(metrics.OpUpdateStatus, userID, itemID, err)
		return model.NewStatusUpdateFailedError()
	}
	return nil
}

// Drop はカンバンのカードを列へドロップしたときの処理。
// 現在のステータスと同じ列へのドロップではストアを呼ばずにfalseを返す。
func (s *Service) Drop(ctx context.Context, userID, itemID string, target model.Status) (bool, error) {
	if !target.Valid() {
		s.metrics.RecordValidationRejected(metrics.OpUpdateStatus)
		return false, model.NewInvalidStatusError(string(target))
	}
	if !validID(itemID) {
		s.metrics.RecordValidationRejected(metrics.OpUpdateStatus)
		return false, model.NewItemNotFoundError(itemID)
	}

	item, err := s.items.FindByID(ctx, userID, itemID)
	if err != nil {
		s.logFailure(metrics.OpUpdateStatus, userID, itemID, err)
		return false, model.NewStatusUpdateFailedError()
	}
	if item == nil {
		return false, model.NewItemNotFoundError(itemID)
	}
	if !planner.DropNeedsUpdate(*item, target) {
		return false, nil
	}

	if err := s.UpdateStatus(ctx, userID, itemID, target); err != nil {
		return false, err
	}
	return true, nil
}

// Delete はコンテンツを削除する。confirmedがfalseの場合はストアを呼ばない。
func (s *Service) Delete(ctx context.Context, userID, itemID string, confirmed bool) error {
	if !confirmed {
		s.metrics.RecordValidationRejected(metrics.OpDelete)
		return model.NewDeleteNotConfirmedError()
	}
	if !validID(itemID) {
		s.metrics.RecordValidationRejected(metrics.OpDelete)
		return model.NewItemNotFoundError(itemID)
	}

	start := time.Now()
	err := s.items.Delete(ctx, userID, itemID)
	s.metrics.RecordMutation(metrics.OpDelete, err, time.Since(start))
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewItemNotFoundError(itemID)
	}
	if err != nil {
		s.logFailure(metrics.OpDelete, userID, itemID, err)
		return model.NewDeleteFailedError()
	}

	s.logger.Info("content item deleted",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)
	return nil
}

// validID はIDがUUIDとして解釈できるかを返す。
// 解釈できないIDの行は存在し得ないため、ストアへ問い合わせずに未検出として扱う。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Service) logFailure(op, userID, itemID string, err error) {
	s.logger.Error("content mutation failed",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.String("error", err.Error()),
	)
}
