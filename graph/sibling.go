// sibling.go carries the speculative-render capability through the
// evaluation context: a node that fans out into dependencies it does
// not own announces them here, and the pipeline tries to schedule
// them on idle workers.

package graph

import (
	"context"
)

// SiblingRequester receives speculative render requests discovered
// during an evaluation. RequestSibling must never block.
type SiblingRequester interface {
	RequestSibling(dep Dependency)
}

type siblingRequesterCtxKey struct{}

func CtxWithSiblingRequester(ctx context.Context, sr SiblingRequester) context.Context {
	return context.WithValue(ctx, siblingRequesterCtxKey{}, sr)
}

func SiblingRequesterFromCtx(ctx context.Context) SiblingRequester {
	sr, _ := ctx.Value(siblingRequesterCtxKey{}).(SiblingRequester)
	return sr
}

// RequestSibling announces dep to the requester in ctx, if any.
// It reports whether somebody was listening.
func RequestSibling(ctx context.Context, dep Dependency) bool {
	sr := SiblingRequesterFromCtx(ctx)
	if sr == nil {
		return false
	}
	sr.RequestSibling(dep)
	return true
}
