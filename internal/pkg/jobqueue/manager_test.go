package jobqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

func resetManager(t *testing.T) {
	t.Helper()
	globalManager = nil
	managerOnce = sync.Once{}
	t.Cleanup(func() {
		globalManager = nil
		managerOnce = sync.Once{}
	})
}

func TestGetManager(t *testing.T) {
	resetManager(t)

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")
	assert.NotNil(t, manager1.queue)
	assert.NotNil(t, manager1.stopCh)
	assert.False(t, manager1.running)
	assert.Same(t, manager1.queue, manager1.GetQueue())
}

func TestGetManager_WorkersFromEnv(t *testing.T) {
	resetManager(t)
	prev := env.Env
	env.Env = map[string]string{"JOBQUEUE_WORKERS": "2"}
	t.Cleanup(func() { env.Env = prev })

	assert.Equal(t, 2, GetManager().queue.workers)
}

func TestManager_IsRunning(t *testing.T) {
	resetManager(t)

	manager := GetManager()
	assert.False(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = true
	manager.mu.Unlock()
	assert.True(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = false
	manager.mu.Unlock()
	assert.False(t, manager.IsRunning())
}

func TestManager_StopWithoutStart(t *testing.T) {
	resetManager(t)

	manager := GetManager()
	manager.Stop()
	assert.False(t, manager.IsRunning())
}
