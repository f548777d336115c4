package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/binzume/tweenanim/character"
	"github.com/pkg/errors"
)

var ErrQueueFull = errors.New("command queue full")

type JointFrame struct {
	Name     string      `json:"name"`
	Position [3]float32  `json:"position"`
	Skinning [16]float32 `json:"skinning"`
}

// Frame is the published result of one update.
type Frame struct {
	Frame  uint64                 `json:"frame"`
	Time   float64                `json:"time"`
	Joints []JointFrame           `json:"joints"`
	Clips  []character.ClipStatus `json:"clips"`
}

// Loop owns a character. Only the goroutine calling Step or Run touches it;
// other goroutines talk to it through Submit and Latest.
type Loop struct {
	char     *character.Character
	commands chan character.Command
	hub      *hub

	frame uint64
	time  float64

	mu   sync.RWMutex
	last *Frame
}

func NewLoop(c *character.Character) *Loop {
	return &Loop{
		char:     c,
		commands: make(chan character.Command, 64),
		hub:      newHub(),
	}
}

// Submit queues cmd for the next frame.
func (l *Loop) Submit(cmd character.Command) error {
	select {
	case l.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Step applies queued commands, advances the character by dt and publishes the frame.
func (l *Loop) Step(dt float32) error {
	for pending := true; pending; {
		select {
		case cmd := <-l.commands:
			if err := l.char.Apply(cmd); err != nil {
				log.Printf("[loop] %s %s: %v", cmd.Op, cmd.Clip, err)
			}
		default:
			pending = false
		}
	}

	skin, err := l.char.Update(dt)
	if err != nil {
		return err
	}
	l.frame++
	l.time += float64(dt)

	world := l.char.WorldTransforms()
	joints := l.char.Skeleton().Joints
	f := &Frame{Frame: l.frame, Time: l.time, Clips: l.char.Clips(), Joints: make([]JointFrame, len(joints))}
	for i := range joints {
		f.Joints[i] = JointFrame{
			Name:     joints[i].Name,
			Position: world[i].Col(3).Vec3(),
			Skinning: skin[i],
		}
	}

	l.mu.Lock()
	l.last = f
	l.mu.Unlock()

	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	l.hub.broadcast(data)
	return nil
}

// Latest returns the most recent frame, nil before the first Step.
func (l *Loop) Latest() *Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Run steps at fps frames per second until ctx is done.
func (l *Loop) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = 60
	}
	dt := time.Second / time.Duration(fps)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	log.Printf("[loop] %s running at %d fps", l.char.Name, fps)
	for {
		select {
		case <-ctx.Done():
			l.hub.close()
			return ctx.Err()
		case <-ticker.C:
			if err := l.Step(float32(dt.Seconds())); err != nil {
				return err
			}
		}
	}
}
