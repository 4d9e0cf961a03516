package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archives"
)

var archiveSuffixes = []string{".zip", ".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".tar.zst", ".7z"}

// IsArchive reports whether path looks like a supported archive.
func IsArchive(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// ImportArchive extracts the audio files of an archive (and their .lrc
// lyrics) into destDir and returns the extracted audio paths, sorted.
func ImportArchive(ctx context.Context, archivePath, destDir string) ([]string, error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}
	defer archiveFile.Close()

	format, reader, err := archives.Identify(ctx, archivePath, archiveFile)
	if err != nil {
		return nil, fmt.Errorf("cannot identify archive format: %w", err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("%s: format does not support extraction", archivePath)
	}

	// Zip and 7z need to seek in the original file
	var archiveReader io.Reader = reader
	switch format.(type) {
	case archives.Zip, archives.SevenZip:
		if _, err := archiveFile.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		archiveReader = archiveFile
	}

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %s", destDir)
	}
	root = filepath.Clean(root)

	var extracted []string
	err = extractor.Extract(ctx, archiveReader, func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() || f.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		isLyrics := strings.EqualFold(filepath.Ext(f.NameInArchive), ".lrc")
		if !IsAudio(f.NameInArchive) && !isLyrics {
			return nil
		}

		dest := filepath.Join(root, filepath.Clean(f.NameInArchive))
		if !strings.HasPrefix(dest, root+string(filepath.Separator)) {
			return fmt.Errorf("invalid file path: %s", f.NameInArchive)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := copyEntry(f, dest); err != nil {
			return fmt.Errorf("extract %s: %w", f.NameInArchive, err)
		}
		if !isLyrics {
			extracted = append(extracted, dest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(extracted)
	return extracted, nil
}

func copyEntry(f archives.FileInfo, dest string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
