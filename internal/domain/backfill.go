package domain

// Selection narrows which content rows a backfill worker owns.
// OnlyMissing restricts to rows whose embedding is still NULL.
// Workers > 1 enables static modulo sharding on the content id:
// a worker owns exactly the rows where id mod Workers == WorkerIndex.
// Partitioning is coordination-free; skewed id distributions are not
// rebalanced.
type Selection struct {
	OnlyMissing bool
	Workers     int
	WorkerIndex int
}
