// Package event provides an in-process pub-sub bus that core components use
// to announce state changes on the shared directory.
//
// The bus only reaches subscribers inside the current process. Other
// sessions learn about changes by reading the directory; the bus exists so
// that the command layer, the debug log, and the watch view can observe a
// component without the component knowing about them.
//
// # Event Categories
//
// Messages:
//   - [MessageAppendedEvent]: a message was published to the log
//
// Locks:
//   - [LockAcquiredEvent]: a lock record was created or refreshed
//   - [LockReleasedEvent]: a lock record was removed
//   - [LockReclaimedEvent]: an expired record was retired before reuse
//
// Sessions:
//   - [SessionRegisteredEvent]: a session id received a friendly name
//   - [FocusChangedEvent]: a session set or cleared its focus
//
// # Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeMessageAppended, func(e event.Event) {
//	    appended := e.(event.MessageAppendedEvent)
//	    fmt.Println(appended.Author, appended.Body)
//	})
//
// Handlers run synchronously on the publishing goroutine. A panicking
// handler is recovered and does not stop delivery to the others.
package event
