package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var languageByExtension = map[string]string{
	".go":  "go",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".py":  "python",
	".rs":  "rust",
}

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index files or directories into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indexed := 0
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return fmt.Errorf("cannot stat %s: %w", arg, err)
				}

				if info.IsDir() {
					count, err := indexDirectory(cmd, arg)
					if err != nil {
						return err
					}
					indexed += count
					continue
				}

				if err := indexFile(cmd, arg); err != nil {
					return err
				}
				indexed++
			}

			cmd.Printf("indexed %d file(s) into repo %q\n", indexed, repoID)
			return nil
		},
	}

	return cmd
}

func indexDirectory(cmd *cobra.Command, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, known := languageByExtension[filepath.Ext(path)]; !known {
			return nil
		}
		if err := indexFile(cmd, path); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func indexFile(cmd *cobra.Command, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	language := languageByExtension[filepath.Ext(path)]
	storedPath := filepath.ToSlash(path)

	return loomEngine.IndexFile(cmd.Context(), repoID, storedPath, language, string(content), info.ModTime())
}
