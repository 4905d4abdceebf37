package wrapper

import "context"

type FromChatCtxKey struct{}

type TaskCtxKey struct{}

func FillCtx(ctx context.Context, chatID int64, taskID string) context.Context {
	ctx = context.WithValue(ctx, FromChatCtxKey{}, chatID)
	ctx = context.WithValue(ctx, TaskCtxKey{}, taskID)

	return ctx
}

func GetChatID(ctx context.Context) (int64, bool) {
	chatID, ok := ctx.Value(FromChatCtxKey{}).(int64)
	return chatID, ok
}

func GetTaskID(ctx context.Context) (string, bool) {
	taskID, ok := ctx.Value(TaskCtxKey{}).(string)
	return taskID, ok
}
