package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWriter uploads staged buffer writes. Each write is resolved to a GPU
// buffer through its provider and binding; writes whose buffer does not exist
// are skipped.
type BufferWriter interface {
	// WriteBuffers writes all staged buffer writes.
	//
	// Parameters:
	//   - writes: the writes to upload, in order
	WriteBuffers(writes []bind_group_provider.BufferWrite)
}

// queueWriter is the wgpu queue implementation of BufferWriter.
type queueWriter struct {
	mu    *sync.Mutex
	queue *wgpu.Queue
}

var _ BufferWriter = &queueWriter{}

// NewQueueWriter creates a BufferWriter that enqueues writes on a wgpu queue.
// Writes land before the next queue Submit. Panics if queue is nil.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - BufferWriter: the queue-backed writer
func NewQueueWriter(queue *wgpu.Queue) BufferWriter {
	if queue == nil {
		panic("renderer: NewQueueWriter requires a non-nil Queue")
	}
	return &queueWriter{mu: &sync.Mutex{}, queue: queue}
}

func (w *queueWriter) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, bw := range writes {
		if bw.Provider == nil {
			continue
		}
		buf := bw.Provider.Buffer(bw.Binding)
		if buf == nil {
			continue
		}
		w.queue.WriteBuffer(buf, bw.Offset, bw.Data)
	}
}

type discardWriter struct{}

func (discardWriter) WriteBuffers([]bind_group_provider.BufferWrite) {}

// Discard is a BufferWriter that drops every write, for headless evaluation.
var Discard BufferWriter = discardWriter{}
