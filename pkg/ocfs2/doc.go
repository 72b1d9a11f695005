// Package ocfs2 describes the small slice of the OCFS2 on-disk format that the
// directory checker needs: directory entry records, file type tags and the
// inode header fields used to classify an inode.
//
// All multi-byte fields are little-endian. Nothing in this package trusts a
// length field it reads from disk; callers validate record boundaries before
// walking them.
package ocfs2
