// Package pass2 checks and repairs the directory entries of every
// directory block found by the inode scan.
//
// For each block the checker walks the entry records from offset 0 to the
// block end. Entry lengths are validated first, since nothing else about an
// entry can be trusted until the walk is known to stay inside the block.
// Each entry then goes through the dot, name, inode, file type, parent
// linkage and duplicate checks, stopping as soon as one of them clears the
// entry's inode.
//
// Repairs are made to the in-memory block. They are written back only when
// Options.WriteChanges is set.
//
// Besides repairing entries the pass records, for every directory, the first
// directory seen holding an entry that points at it and the inode its own
// ".." entry points at. A later pass uses both to reconnect directories.
package pass2
