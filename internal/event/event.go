// In-process event bus connecting the library and download services to
// the activity gateway without either side importing the other.
package event

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var log = logger.Get("Activity")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventHandler struct {
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

const (
	// LIBRARY_UPDATE is dispatched whenever the set of stored videos
	// changes (download completed, video deleted, reconciler discovery).
	// The payload is the video ID concerned, or an empty string when a
	// reconcile pass added several at once.
	LIBRARY_UPDATE Event = "library:update"

	// DOWNLOAD_COMPLETE is dispatched when an extraction finishes
	// successfully. Payload is the new video ID.
	DOWNLOAD_COMPLETE Event = "download:complete"
)

func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel takes a channel and a set of events, and will send
// a HandlerEvent on the channel any time one of those events is dispatched.
//
// If the channel is BLOCKED when the event bus attempts to send on it, the
// dispatching thread blocks too; buffer handler channels appropriately.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction stores a handler which is called synchronously,
// with the payload, whenever the event is dispatched. The handle provided
// should return quickly, else other threads calling Dispatch will block.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction stores a handler which is called inside a
// goroutine when the event is dispatched.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (handler *eventHandler) registerHandlerMethod(event Event, handle handlerMethod) {
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handle)
}

// Dispatch delivers the payload to every handler registered for the event.
// Note that this method WILL block if a synchronous handler function is
// blocking, or if channel handlers are blocked.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	if err := handler.validatePayload(event, payload); err != nil {
		log.Emit(logger.FATAL, "Dispatch for event %v FAILED validation: %v", event, err)
		return
	}

	if handles, ok := handler.fnHandlers[event]; ok {
		for _, handle := range handles {
			if handle.async {
				go handle.handle(event, payload)
			} else {
				handle.handle(event, payload)
			}
		}
	}

	if handles, ok := handler.chanHandlers[event]; ok {
		payload := HandlerEvent{event, payload}
		for _, handle := range handles {
			handle <- payload
		}
	}
}

// validatePayload ensures that the payload provided is valid for the event
// specified; an invalid payload means the event is not delivered at all.
func (handler *eventHandler) validatePayload(event Event, payload Payload) error {
	switch event {
	case LIBRARY_UPDATE, DOWNLOAD_COMPLETE:
		if _, ok := payload.(string); !ok {
			var payloadTypeName string
			if t := reflect.TypeOf(payload); t != nil {
				payloadTypeName = t.Name()
			} else {
				payloadTypeName = "Nil"
			}

			return fmt.Errorf("illegal payload (type %s) for %s event, expected string video ID", payloadTypeName, event)
		}

		return nil
	}

	return errors.New("event type not recognized for validation")
}
