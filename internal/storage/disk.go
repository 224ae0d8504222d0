package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage returns the bytes used on disk by a SQLite database and a Bleve index directory.
// The WAL and shared-memory files next to the database are included. Missing paths count as 0.
func DiskUsage(databasePath, indexPath string) (int64, error) {
	var paths []string
	if databasePath != "" {
		paths = append(paths, databasePath, databasePath+"-wal", databasePath+"-shm")
	}
	if indexPath != "" {
		paths = append(paths, indexPath)
	}

	var total int64
	for _, p := range paths {
		n, err := pathSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
