// Package lock provides time-boxed advisory locks implementing core.Locker.
//
// This package includes:
//   - GormLocker: a lock row in the job database, acquired with a
//     conditional upsert so only an expired holder can be replaced
//   - RedisLocker: SET NX PX with a compare-and-delete release
//
// Neither lock is fenced. A holder that outlives its TTL keeps running;
// the next acquirer simply stops waiting for it.
package lock
