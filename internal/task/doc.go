// Package task defines the background tasks of the application and the
// client, worker, and scheduler plumbing around the task queue. The queue
// library owns enqueueing, delivery, and retries; this package only maps
// task executions onto task-log rows and the message table.
package task
