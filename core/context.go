package core

import "context"

// Context keys for analysis attribution
type contextKey string

const (
	batchIDKey     contextKey = "batchID"
	memberIndexKey contextKey = "memberIndex"
)

// withBatchMember tags the context with the batch member being analyzed
func withBatchMember(ctx context.Context, batchID string, index int) context.Context {
	ctx = context.WithValue(ctx, batchIDKey, batchID)
	return context.WithValue(ctx, memberIndexKey, index)
}

// batchMemberFrom returns the batch id and member index from context
func batchMemberFrom(ctx context.Context) (string, int, bool) {
	id, ok := ctx.Value(batchIDKey).(string)
	if !ok {
		return "", -1, false // default: a single analysis
	}
	index, ok := ctx.Value(memberIndexKey).(int)
	if !ok {
		return "", -1, false
	}
	return id, index, true
}
