/*
Package ports defines the driven ports (interfaces) of the dispatch pipeline.

These interfaces decouple the core logic from external implementations, so the
same pipeline runs in a single process or across replicas.

# Key Interfaces

  - Locker: Provides distributed locking so destructive actions sharing a key
    stay mutually exclusive across instances.
*/
package ports
