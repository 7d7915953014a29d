// Package checkpoint saves and resumes the progress of a discovery run.
//
// After every processed query the runner records the query key, the profiles
// accepted so far and the run counters. An interrupted run started again with the
// same plan skips the recorded queries and keeps the saved profiles, so nothing is
// fetched twice. The file is removed once the whole plan has been processed.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/profilescout/checkpoints/
//   - macOS: ~/Library/Application Support/profilescout/checkpoints/
//   - Windows: %APPDATA%/profilescout/checkpoints/
//
// Files are written atomically (temporary file, sync, rename) and carry a version.
package checkpoint
