package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/contentplan/internal/metrics"
	"github.com/hitoshi/contentplan/internal/model"
)

// ListProjects はユーザーのプロジェクト一覧を作成日時降順で返す。
func (s *Service) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := s.projects.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list projects",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return projects, nil
}

// CreateProject はプロジェクトを作成する。名前が空の場合はストアを呼ばない。
// 作成日時はストア側で採番される。
func (s *Service) CreateProject(ctx context.Context, userID, name, description string) (*model.Project, error) {
	name = s.sanitizer.Sanitize(name)
	if name == "" {
		s.metrics.RecordValidationRejected(metrics.OpCreateProject)
		return nil, model.NewProjectNameRequiredError()
	}

	project := &model.Project{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: s.sanitizer.Sanitize(description),
	}

	start := time.Now()
	err := s.projects.Create(ctx, project)
	s.metrics.RecordMutation(metrics.OpCreateProject, err, time.Since(start))
	if err != nil {
		s.logger.Error("project creation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProjectCreateFailedError()
	}

	s.logger.Info("project created",
		slog.String("user_id", userID),
		slog.String("project_id", project.ID),
	)
	return project, nil
}
