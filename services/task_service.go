package services

import (
	"context"
	"strings"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

// TaskService implements the standalone to-do item operations
// referenced alongside Event/Reminder in spec.md §4.5's domain
// service trio, following the same ownership/validation shape.
type TaskService struct {
	repo *repository.TaskRepository
}

func NewTaskService(repo *repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) Create(ctx context.Context, userID, title string, description *string, priority domain.TaskPriority) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.InvalidArgumentError("title must not be empty")
	}
	if priority == "" {
		priority = domain.TaskPriorityNormal
	}
	t := &domain.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      domain.TaskPending,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) GetByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *TaskService) List(ctx context.Context, userID string) ([]*domain.Task, error) {
	return s.repo.ListByUser(ctx, userID)
}

type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *domain.TaskPriority
	Status      *domain.TaskStatus
}

func (s *TaskService) Update(ctx context.Context, taskID, userID string, patch TaskPatch) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, pkgerrors.InvalidArgumentError("title must not be empty")
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) Complete(ctx context.Context, taskID, userID string) (*domain.Task, error) {
	done := domain.TaskCompleted
	return s.Update(ctx, taskID, userID, TaskPatch{Status: &done})
}

func (s *TaskService) Delete(ctx context.Context, taskID, userID string) error {
	return s.repo.Delete(ctx, taskID, userID)
}
