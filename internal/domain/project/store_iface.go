package project

import "context"

type StoreAPI interface {
	List(ctx context.Context, status string) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Create(ctx context.Context, p Project) (Project, error)
	Update(ctx context.Context, id string, in Input) (Project, error)
	Delete(ctx context.Context, id string) error
}
