package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_AllowList(t *testing.T) {
	svc := New([]int64{20, 10})

	assert.True(t, svc.IsAllowed(10))
	assert.True(t, svc.IsAllowed(20))
	assert.False(t, svc.IsAllowed(30))
	assert.False(t, svc.Open())
	assert.Equal(t, []int64{10, 20}, svc.List())
}

func TestService_EmptyListAllowsEveryone(t *testing.T) {
	svc := New(nil)
	assert.True(t, svc.Open())
	assert.True(t, svc.IsAllowed(12345))

	var nilSvc *Service
	assert.True(t, nilSvc.IsAllowed(1))
}
