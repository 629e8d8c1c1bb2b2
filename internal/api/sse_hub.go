package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"gounlearn/internal/viewmodel"

	"github.com/gin-gonic/gin"
)

// FrameSource is the part of the coordinator the hub streams from
type FrameSource interface {
	Frame() (viewmodel.Frame, error)
	Subscribe(fn func(viewmodel.Frame)) (unsubscribe func())
}

// FrameHub fans coordinator frames out to Server-Sent Events clients
type FrameHub struct {
	clients    map[chan viewmodel.Frame]bool
	clientsMu  sync.RWMutex
	register   chan chan viewmodel.Frame
	unregister chan chan viewmodel.Frame
	broadcast  chan viewmodel.Frame
	done       chan struct{}
	closeOnce  sync.Once

	source      FrameSource
	unsubscribe func()

	// KeepAlive is the interval between ping events on an idle stream
	KeepAlive time.Duration
}

// NewFrameHub creates a hub subscribed to source
func NewFrameHub(source FrameSource) *FrameHub {
	hub := &FrameHub{
		clients:    make(map[chan viewmodel.Frame]bool),
		register:   make(chan chan viewmodel.Frame, 10),
		unregister: make(chan chan viewmodel.Frame, 10),
		broadcast:  make(chan viewmodel.Frame, 64),
		done:       make(chan struct{}),
		source:     source,
		KeepAlive:  30 * time.Second,
	}

	go hub.run()
	hub.unsubscribe = source.Subscribe(hub.Broadcast)
	return hub
}

func (h *FrameHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			log.Printf("[SSE] Client registered (total clients: %d)", len(h.clients))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client)
				log.Printf("[SSE] Client unregistered (remaining clients: %d)", len(h.clients))
			}
			h.clientsMu.Unlock()

		case frame := <-h.broadcast:
			h.clientsMu.RLock()
			for client := range h.clients {
				select {
				case client <- frame:
				default:
					// slow clients miss intermediate frames; the next one supersedes them
					log.Printf("[SSE] Client channel full, skipping frame %d", frame.Seq)
				}
			}
			h.clientsMu.RUnlock()

		case <-h.done:
			h.clientsMu.Lock()
			for client := range h.clients {
				close(client)
			}
			h.clients = make(map[chan viewmodel.Frame]bool)
			h.clientsMu.Unlock()
			return
		}
	}
}

// Broadcast queues a frame for every connected client
func (h *FrameHub) Broadcast(frame viewmodel.Frame) {
	select {
	case h.broadcast <- frame:
	case <-h.done:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping frame %d", frame.Seq)
	}
}

// Close detaches the hub from its source and ends every stream
func (h *FrameHub) Close() {
	h.closeOnce.Do(func() {
		h.unsubscribe()
		close(h.done)
	})
}

// ClientCount returns the number of connected clients
func (h *FrameHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// HandleSSE streams the current frame followed by every later one
func (h *FrameHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientChan := make(chan viewmodel.Frame, 8)
	select {
	case h.register <- clientChan:
	case <-h.done:
		c.JSON(503, gin.H{"error": "frame stream closed"})
		return
	}

	defer func() {
		select {
		case h.unregister <- clientChan:
		case <-h.done:
		}
	}()

	// Frames queued before the current one was read are already stale
	var lastSeq uint64
	if frame, err := h.source.Frame(); err == nil {
		writeFrame(c, frame)
		c.Writer.Flush()
		lastSeq = frame.Seq
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case frame, ok := <-clientChan:
			if !ok {
				return false
			}
			if frame.Seq <= lastSeq {
				return true
			}
			writeFrame(c, frame)
			lastSeq = frame.Seq
			return true

		case <-time.After(h.KeepAlive):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

func writeFrame(c *gin.Context, frame viewmodel.Frame) {
	frameJSON, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[SSE] Failed to marshal frame %d: %v", frame.Seq, err)
		return
	}
	c.SSEvent("frame", string(frameJSON))
}
