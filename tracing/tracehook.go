package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/vst/sim"
)

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// CollectTrace lets the tracer see every task of a domain.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	CollectFilteredTrace(domain, tracer, nil)
}

// CollectFilteredTrace lets the tracer see only the tasks of a domain accepted
// by the filter. Steps and ends carry no kind, so the hook remembers which
// started tasks were accepted. A nil filter accepts everything.
func CollectFilteredTrace(
	domain NamedHookable,
	tracer Tracer,
	filter TaskFilter,
) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := &traceHook{t: tracer, filter: filter}
	if filter != nil {
		h.accepted = make(map[string]bool)
	}

	domain.AcceptHook(h)
}

type traceHook struct {
	t        Tracer
	filter   TaskFilter
	accepted map[string]bool
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosTaskStart:
		if h.filter != nil {
			if !h.filter(task) {
				return
			}

			h.accepted[task.ID] = true
		}

		h.t.StartTask(task)
	case HookPosTaskStep:
		if h.pass(task.ID) {
			h.t.StepTask(task)
		}
	case HookPosTaskEnd:
		if h.pass(task.ID) {
			delete(h.accepted, task.ID)
			h.t.EndTask(task)
		}
	}
}

func (h *traceHook) pass(id string) bool {
	return h.filter == nil || h.accepted[id]
}
