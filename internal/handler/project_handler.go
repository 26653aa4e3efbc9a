package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/contentplan/internal/model"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	CreateProject(ctx context.Context, userID, name, description string) (*model.Project, error)
}

// ProjectHandler はプロジェクト管理のJSON APIハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// timestampResponse は作成日時を秒とナノ秒に分けて表す。
type timestampResponse struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int   `json:"nanoseconds"`
}

// projectResponse はプロジェクトのAPIレスポンス。
type projectResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	CreatedAt   timestampResponse `json:"created_at"`
}

func toProjectResponse(p model.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt: timestampResponse{
			Seconds:     p.CreatedAt.Unix(),
			Nanoseconds: p.CreatedAt.Nanosecond(),
		},
	}
}

func toProjectResponses(projects []model.Project) []projectResponse {
	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}
	return results
}

// ListProjects はプロジェクト一覧を作成日時の新しい順に返す。
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	projects, err := h.service.ListProjects(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": toProjectResponses(projects),
	})
}

// CreateProject はプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	project, err := h.service.CreateProject(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(*project))
}
