package collab

import (
	"context"
	"errors"
)

var (
	ErrSemaphoreAcquireTimeout = errors.New("SEMAPHORE_ACQUIRE_TIMEOUT")
	ErrSemaphoreNotAcquired    = errors.New("SEMAPHORE_NOT_ACQUIRED")
)

// SemaphoreControl 是基于带缓冲通道的计数信号量。
// 提交链路和 Kafka 发送的并发上限不同，容量由调用方给定：
// 提交侧要容纳房间里所有在线客户端同时敲键盘，
// 发送侧只需要覆盖 dispatcher 的 worker 数。
type SemaphoreControl struct {
	ch chan struct{}
}

func NewSemaphoreControl(capacity int) *SemaphoreControl {
	if capacity <= 0 {
		capacity = 100
	}
	return &SemaphoreControl{ch: make(chan struct{}, capacity)}
}

func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrSemaphoreAcquireTimeout
	}
}

// TryAcquire 非阻塞获取，拿不到立即返回 false。
func (s *SemaphoreControl) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return ErrSemaphoreNotAcquired
	}
}

// InUse 返回当前被占用的额度，日志/调试用。
func (s *SemaphoreControl) InUse() int { return len(s.ch) }
