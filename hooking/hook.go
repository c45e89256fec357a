// Package hooking lets observers attach to the points of interest of a
// component without the component knowing who is listening.
package hooking

import (
	"fmt"
	"reflect"
)

// A HookPos names a point of a component where hooks are invoked.
type HookPos struct {
	Name string
}

// HookCtx describes one invocation.
type HookCtx struct {
	// Domain is the component that invokes the hook.
	Domain Hookable

	// Pos is where in the domain the hook is invoked.
	Pos *HookPos

	// Item is the payload of the position. Its type depends on Pos.
	Item any
}

// Hookable is a component that hooks can attach to.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
}

// A Hook observes a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements Hookable. Components embed it and call InvokeHook
// at each of their positions.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns the number of attached hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics.
// Hooks whose type cannot be compared, such as function hooks, are always
// accepted.
func (h *HookableBase) AcceptHook(hook Hook) {
	if t := reflect.TypeOf(hook); t != nil && t.Comparable() {
		for _, attached := range h.hooks {
			if attached == hook {
				panic(fmt.Sprintf("hook %T attached twice", hook))
			}
		}
	}

	h.hooks = append(h.hooks, hook)
}

// InvokeHook calls the attached hooks in the order they were attached.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
