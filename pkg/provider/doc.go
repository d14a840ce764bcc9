// Package provider exposes compiled RBC containers to the execution engine.
//
// A Provider is the engine's only window onto bytecode data: global tables,
// per-function headers and instructions, exception handler ranges, and debug
// metadata. The package defines the contract once and ships one concrete
// implementation, BufferProvider, which interprets a single immutable byte
// buffer in place. Alternate backings (for example an in-memory result of
// on-the-fly evaluation) implement the same interface elsewhere.
//
// BufferProvider performs no decoding up front beyond locating table starts,
// holds no locks on the read path (the data is immutable after construction),
// and can opportunistically pre-fault buffer pages into the OS cache with a
// cancellable background warmup worker.
package provider
