package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/knowledgebase-server/internal/testutil"
)

func TestRecovery_Unary(t *testing.T) {
	r := NewRecovery(testutil.MakeNoopLogger())

	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}
	_, err := r.Unary()(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})

	assert.Equal(t, codes.Internal, status.Code(err))
}
