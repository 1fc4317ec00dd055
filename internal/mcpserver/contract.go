package mcpserver

// OperationsGuide is the canonical operations reference served as the
// saveward://operations resource.
const OperationsGuide = `# Saveward Backup Operations

Saveward incrementally archives world save folders. Each cycle it hashes
every tracked file (SHA-256), appends only the files whose content changed
to the world's active zip container, persists the fingerprint metadata, and
prunes containers beyond the retention limit.

## Cycles

- Cycles run on a fixed schedule and on demand (run_backup).
- Only one cycle or restore runs at a time. A request made while one is in
  flight either waits in the single queue slot or is rejected as busy.
- A file observed for the first time always counts as changed.
- Per-file and per-world failures are contained: they are logged and never
  abort the rest of the cycle.

## Rotation and retention

- The active container is named backup_<epochMillis>.zip after its creation
  time. Once its age reaches the configured threshold it is sealed in place
  and a freshly named container becomes active.
- The same relative path may appear multiple times inside one container,
  once per cycle in which it changed. On restore, the last entry wins.
- Retention keeps the N most recently modified containers per world and
  deletes the rest.

## Restore

- restore_archive extracts a container back into the live worlds directory,
  overwriting existing files unconditionally.
- There is no rollback: if a restore is interrupted, files already written
  remain. Restart the consuming server after every restore before resuming
  play.
`
