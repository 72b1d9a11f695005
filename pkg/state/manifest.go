package state

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
)

// Manifest is the serialised output of the inode scan. Importing it seeds
// a Store with everything the directory pass expects to find.
//
// Example:
//
//	filesystem:
//	  block_size: 4096
//	  total_blocks: 262144
//	  root_inode: 5
//	inodes:
//	  used: [5, 12, 13]
//	  directories: [5, 12]
//	  regular: [13]
//	directories:
//	  - inode: 5
//	    blocks: [1000, 1001]
//	  - inode: 12
//	    blocks: [1002]
type Manifest struct {
	Filesystem  Geometry            `yaml:"filesystem"`
	Inodes      ManifestInodes      `yaml:"inodes"`
	Directories []ManifestDirectory `yaml:"directories"`
}

// ManifestInodes lists the members of each inode bitmap.
type ManifestInodes struct {
	Used        []uint64 `yaml:"used,omitempty"`
	Directories []uint64 `yaml:"directories,omitempty"`
	Regular     []uint64 `yaml:"regular,omitempty"`
	Bad         []uint64 `yaml:"bad,omitempty"`
	Rebuild     []uint64 `yaml:"rebuild,omitempty"`
}

// ManifestDirectory lists the physical blocks of one directory in logical
// order.
type ManifestDirectory struct {
	Inode  uint64   `yaml:"inode"`
	Blocks []uint64 `yaml:"blocks"`
}

// DecodeManifest parses a YAML manifest.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for internal consistency.
func (m *Manifest) Validate() error {
	if !ocfs2.ValidBlockSize(int(m.Filesystem.BlockSize)) {
		return fmt.Errorf("manifest: invalid block_size %d, want a power of two from %d to %d",
			m.Filesystem.BlockSize, ocfs2.MinBlockSize, ocfs2.MaxBlockSize)
	}
	if m.Filesystem.TotalBlocks == 0 {
		return fmt.Errorf("manifest: total_blocks is required")
	}

	dirs := make(map[uint64]bool, len(m.Inodes.Directories))
	for _, ino := range m.Inodes.Directories {
		dirs[ino] = true
	}
	for i, d := range m.Directories {
		if !dirs[d.Inode] {
			return fmt.Errorf("manifest: directories[%d]: inode %d is not in inodes.directories", i, d.Inode)
		}
		for j, blkno := range d.Blocks {
			if blkno >= m.Filesystem.TotalBlocks {
				return fmt.Errorf("manifest: directories[%d].blocks[%d]: block %d beyond end of filesystem", i, j, blkno)
			}
		}
	}
	return nil
}

// Import seeds store from m: geometry, every bitmap, one empty parent record
// per directory inode and the directory block lists.
func Import(ctx context.Context, store Store, m *Manifest) error {
	geom := m.Filesystem
	if geom.RootInode == 0 {
		return fmt.Errorf("manifest: root_inode is required")
	}
	if err := store.SetGeometry(ctx, geom); err != nil {
		return fmt.Errorf("failed to record geometry: %w", err)
	}

	sets := []struct {
		bm   Bitmap
		inos []uint64
	}{
		{UsedInodes, m.Inodes.Used},
		{DirInodes, m.Inodes.Directories},
		{RegInodes, m.Inodes.Regular},
		{BadInodes, m.Inodes.Bad},
		{RebuildDirs, m.Inodes.Rebuild},
	}
	for _, set := range sets {
		for _, ino := range set.inos {
			if _, err := store.Set(ctx, set.bm, ino); err != nil {
				return err
			}
		}
	}

	for _, ino := range m.Inodes.Directories {
		if err := store.AddParent(ctx, ino); err != nil {
			return fmt.Errorf("failed to allocate parent record for inode %d: %w", ino, err)
		}
	}

	for _, d := range m.Directories {
		for blkcount, blkno := range d.Blocks {
			dbe := DirBlockEntry{Ino: d.Inode, Blkcount: uint64(blkcount), Blkno: blkno}
			if err := store.AddDirBlock(ctx, dbe); err != nil {
				return err
			}
		}
	}
	return nil
}
