package handlers

import (
	"context"

	"task_manager/internal/domain"
	"task_manager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskStore is what the task handlers need from storage. The pgx
// repository implements it; tests swap in an in-memory fake.
type TaskStore interface {
	ListByUser(ctx context.Context, userID int64, page, perPage int) ([]*domain.Task, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, id int64, upd domain.TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
}

// UserStore backs registration, login and the /me endpoint.
type UserStore interface {
	CreateWithRole(ctx context.Context, u *domain.User, role string) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Permissions(ctx context.Context, userID int64) ([]string, error)
}

type Handler struct {
	DB    *pgxpool.Pool
	Tasks TaskStore
	Users UserStore
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{
		DB:    db,
		Tasks: repository.NewTaskRepository(db),
		Users: repository.NewUserRepository(db),
	}
}

// getUserID extracts the authenticated user id set by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	uid, ok := uidVal.(int64)
	return uid, ok
}
