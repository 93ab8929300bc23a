// Package repositorycache keeps cached views coherent with persistence.
//
// # Overview
//
// Manager wraps a cache.Store and is the only path services use to reach
// it. It provides:
//
//   - cache-aside reads through the generic GetOrFetch
//   - targeted invalidation after writes (InvalidateCategory,
//     InvalidateUser)
//   - glob pattern invalidation for keys that cannot be named up front
//     (InvalidateStatistics, DeleteByPattern)
//
// # Reads
//
//	view, err := repositorycache.GetOrFetch(ctx, mgr, cache.CategoryKey(id), mgr.TTL().Category,
//		func(ctx context.Context) (CategoryView, error) {
//			return loadView(ctx, id)
//		})
//
// On a hit the decoded value is returned. On a miss, or when the store
// fails or holds an undecodable value, the fetch function runs and its
// result is stored. Fetch errors are returned to the caller and never
// cached. Pass Bypass() to skip the cache for one call.
//
// # Writes
//
// Services invalidate after a successful write and before returning. All
// deletes for one write run concurrently and the call waits for them, so a
// read issued after the write returns cannot see a view from before it,
// short of a concurrent read repopulating the key.
//
// # Failure containment
//
// Every store call runs under Config.OperationTimeout. Timeouts and store
// errors are logged at Warn and turned into a miss or a no-op; callers
// never see them.
//
// # Pattern deletes
//
// DeleteByPattern enumerates keys through cache.KeyScanner, filters them
// with a compiled cache.Pattern and deletes the matches in batches of
// Config.DeleteBatchSize, using cache.BatchDeleter when the store has it.
// A store without KeyScanner makes pattern deletes a logged no-op; those
// entries expire through their TTL.
package repositorycache
