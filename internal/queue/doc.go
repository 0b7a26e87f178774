/*
Package queue implements the durable request queue behind behavioral tracking.

# Backlog

Pending requests live in a single storage slot (StorageKey) holding a JSON
list. Entries are objects {"url", "method", "body"}; bare URL strings written
by older clients are read as GET entries. Every RequestQueue bound to the same
store shares that slot: Queue appends to it and the drain pops its front, so
the backlog, not the queue instance, owns the work.

# Delivery

A RequestQueue sends one request at a time, oldest first, and moves on when
the request completes whether it succeeded or not. There is no retry: a
failed request is consumed. Delivery is therefore at most once per entry as
long as entries are popped through a store implementing storage.Updater
(memory and SQLite stores do). With a store lacking atomic updates, two
queues may pop the same entry and deliver it twice; hosts that cannot
provide an Updater should run a single queue per store.

Ordering holds per instance only. Several queues draining one backlog
interleave arbitrarily, and each keeps at most one request in flight.

# Unload

The lifecycle.BeforeUnload signal flushes a queue: the instance stops sending
permanently and the backlog is written back to storage, so a sibling queue or
the next process picks it up.
*/
package queue
