// Package task runs cooperative tasks on a single logical thread.
//
// A [Loop] owns one run token. A task holds the token while it runs and gives
// it up only at an explicit suspension point ([Task.Await], [Task.Sleep],
// [Task.Yield]), so two tasks of the same loop never execute at the same
// time. Waiting tasks receive the token in arrival order.
//
// [Loop.Run] drives a root task to completion. When the root returns, every
// task still pending is cancelled: suspended tasks wake with the loop's
// cancellation cause and running tasks are interrupted through the hook set
// with [Task.SetInterrupt]. Run returns only after all of them have exited.
//
// Each task is named "<prefix>-<uuid>", unique for the life of the process.
package task
