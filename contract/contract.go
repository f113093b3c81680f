package contract

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) WorkerName {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return WorkerName(t.Name())
}

// Emitter addresses outbound events to connections. Sends are fire-and-forget
// and at-most-once: a full or vanished connection drops the event, it is
// never queued for retry.
type Emitter interface {
	Send(conn domain.ConnID, evt event.Outbound)
	Broadcast(evt event.Outbound)
}

// Dispatcher accepts inbound protocol events from the transport, tagged with
// the connection that produced them.
type Dispatcher interface {
	Dispatch(conn domain.ConnID, evt event.Inbound)
}
