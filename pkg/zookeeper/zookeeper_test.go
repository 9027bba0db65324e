package zookeeper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Zookeeper{}).Get(ctx, "/config/modelgateway/spec")
	assert.ErrorIs(t, err, context.Canceled)
}
