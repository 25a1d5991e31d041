package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/sarchlab/memsim/vm"
)

// A Player feeds a script of commands into a simulator, one command per
// interval. Starting and stopping a player is idempotent and safe at any
// time, since the player only talks to the simulator through Apply.
type Player struct {
	sim      *Simulator
	commands []vm.Command
	interval time.Duration

	lock   sync.Mutex
	next   int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer creates a player for the script.
func NewPlayer(
	sim *Simulator,
	commands []vm.Command,
	interval time.Duration,
) *Player {
	if interval <= 0 {
		panic("player interval must be positive")
	}

	return &Player{
		sim:      sim,
		commands: commands,
		interval: interval,
	}
}

// Start plays the remaining commands in the background. It does nothing if
// the player is already playing.
func (p *Player) Start(ctx context.Context) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.isPlaying() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.play(ctx, p.done)
}

// Stop pauses the player and waits until it is idle. It does nothing if the
// player is not playing.
func (p *Player) Stop() {
	p.lock.Lock()
	cancel, done := p.cancel, p.done
	p.lock.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Done returns a channel that is closed when the current run ends, either
// because the script is over or because the player is stopped. It returns nil
// if the player has never been started.
func (p *Player) Done() <-chan struct{} {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.done
}

// Playing tells if the player is running.
func (p *Player) Playing() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.isPlaying()
}

// Position returns the index of the next command to play.
func (p *Player) Position() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.next
}

// Len returns the number of commands in the script.
func (p *Player) Len() int {
	return len(p.commands)
}

// Rewind moves back to the first command. It stops the player first.
func (p *Player) Rewind() {
	p.Stop()

	p.lock.Lock()
	p.next = 0
	p.lock.Unlock()
}

func (p *Player) isPlaying() bool {
	if p.done == nil {
		return false
	}

	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Player) play(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		cmd, ok := p.nextCommand()
		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.sim.Apply(cmd)
		p.advance()
	}
}

func (p *Player) nextCommand() (vm.Command, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.next >= len(p.commands) {
		return nil, false
	}

	return p.commands[p.next], true
}

func (p *Player) advance() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.next++
}
