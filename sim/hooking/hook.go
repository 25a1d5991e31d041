// Package hooking lets observers attach to the events of a component without
// the component knowing who listens.
package hooking

import (
	"fmt"
	"reflect"
)

// HookPos names a point where a component calls its hooks. Positions are
// compared by pointer, so each one is declared once as a package variable.
type HookPos struct {
	Name string
}

// HookCtx describes one call of the hooks.
type HookCtx struct {
	// Domain is the component calling the hooks.
	Domain Hookable

	// Pos tells which point of the component is reached. Hooks that only
	// care about some points return early on the others.
	Pos *HookPos

	// Item is the value the position is about, for example the record of
	// an applied command.
	Item any

	// Detail carries extra information some positions attach.
	Detail any
}

// Hook observes a component. Func runs synchronously on the goroutine of the
// component, so it must not call back into the component.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// Tagged is an item that carries tags. Hooks that count or filter events use
// the tags rather than the concrete item type.
type Tagged interface {
	Tags() []string
}

// Hookable is a named component that calls hooks.
type Hookable interface {
	Name() string
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// HookableBase keeps the hooks of a component. Embedding it provides every
// Hookable method but Name.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook appends a hook. A hook can be registered only once per
// component. HookFunc values cannot be compared and are never rejected.
func (b *HookableBase) AcceptHook(hook Hook) {
	if reflect.TypeOf(hook).Comparable() {
		for _, h := range b.hooks {
			if h == hook {
				panic(fmt.Sprintf("hook %T registered twice", hook))
			}
		}
	}

	b.hooks = append(b.hooks, hook)
}

// NumHooks returns how many hooks are registered.
func (b *HookableBase) NumHooks() int {
	return len(b.hooks)
}

// Hooks returns the registered hooks in registration order.
func (b *HookableBase) Hooks() []Hook {
	return b.hooks
}

// InvokeHook calls every hook with ctx, in registration order.
func (b *HookableBase) InvokeHook(ctx HookCtx) {
	for _, h := range b.hooks {
		h.Func(ctx)
	}
}
