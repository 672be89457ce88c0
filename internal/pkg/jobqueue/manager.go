package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue       *Queue
	statsTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(env.GetInt("JOBQUEUE_WORKERS", 5)),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	m.statsTicker = time.NewTicker(env.GetDurationSeconds("JOBQUEUE_STATS_INTERVAL_SECONDS", 5*time.Minute))
	m.wg.Add(1)
	go m.statsWorker(m.stopCh, m.statsTicker)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.statsTicker != nil {
		m.statsTicker.Stop()
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// statsWorker periodically logs queue depth and job outcomes
func (m *Manager) statsWorker(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Stats worker stopping")
			return
		case <-ticker.C:
			m.logStatsOnce(context.Background())
		}
	}
}

func (m *Manager) logStatsOnce(ctx context.Context) {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Failed to read queue size: %v", err)
		return
	}
	processing, _ := m.queue.GetProcessingSize(ctx)
	stats, _ := m.queue.GetJobStats(ctx)
	log.Infof("[JobQueue Manager] pending=%d processing=%d completed=%d failed=%d",
		pending, processing, stats[JobStatusCompleted], stats[JobStatusFailed])
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
