package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandoffTask adalah satu perpindahan ke billing yang sudah dijadwalkan.
type HandoffTask struct {
	ID    string
	VNO   string
	timer *time.Timer
}

// HandoffScheduler menjalankan perpindahan ke billing setelah jeda.
// Setiap VNO memiliki paling banyak satu task yang menunggu.
type HandoffScheduler struct {
	mu     sync.Mutex
	tasks  map[string]*HandoffTask
	logger *zap.Logger
}

func NewHandoffScheduler(logger *zap.Logger) *HandoffScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandoffScheduler{tasks: make(map[string]*HandoffTask), logger: logger}
}

// Schedule menjadwalkan fn setelah delay. Task lama untuk VNO yang sama dibatalkan.
func (h *HandoffScheduler) Schedule(vno string, delay time.Duration, fn func()) *HandoffTask {
	task := &HandoffTask{ID: uuid.NewString(), VNO: vno}

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.tasks[vno]; ok {
		prev.timer.Stop()
	}
	task.timer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		current, ok := h.tasks[vno]
		if !ok || current.ID != task.ID {
			h.mu.Unlock()
			return
		}
		delete(h.tasks, vno)
		h.mu.Unlock()

		h.logger.Debug("handoff dijalankan", zap.String("vno", vno), zap.String("task", task.ID))
		fn()
	})
	h.tasks[vno] = task
	return task
}

// Cancel membatalkan task yang masih menunggu untuk VNO. Mengembalikan false bila
// tidak ada task atau task sudah berjalan.
func (h *HandoffScheduler) Cancel(vno string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.tasks[vno]
	if !ok {
		return false
	}
	delete(h.tasks, vno)
	return task.timer.Stop()
}

// Pending bernilai true bila VNO masih punya task yang belum berjalan.
func (h *HandoffScheduler) Pending(vno string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.tasks[vno]
	return ok
}
