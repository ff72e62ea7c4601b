package announcement

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]Announcement, error)
	Get(ctx context.Context, id string) (Announcement, error)
	Create(ctx context.Context, a Announcement) (Announcement, error)
	Update(ctx context.Context, id string, in Input) (Announcement, error)
	Delete(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id, uid string) (bool, error)
	UnreadCount(ctx context.Context, uid string) (int, error)
}
