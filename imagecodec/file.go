// file.go reads and writes cache files. Writes go through a
// temporary file in the same directory followed by a rename, so a
// cache file either exists well-formed or does not exist at all.

package imagecodec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/types"
)

func WriteFile(ctx context.Context, path string, f *frame.Video) (_err error) {
	logger.Tracef(ctx, "WriteFile: %s", path)
	defer func() { logger.Tracef(ctx, "/WriteFile: %s: %v", path, _err) }()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*"+Extension)
	if err != nil {
		return fmt.Errorf("unable to create a temporary file next to '%s': %w", path, err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, f); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("unable to encode into '%s': %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("unable to close '%s': %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("unable to move '%s' to '%s': %w", tmpName, path, err)
	}
	return nil
}

func ReadFile(
	ctx context.Context,
	path string,
	format types.PixelFormat,
	dst *frame.Video,
) (_err error) {
	logger.Tracef(ctx, "ReadFile: %s", path)
	defer func() { logger.Tracef(ctx, "/ReadFile: %s: %v", path, _err) }()

	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer r.Close()

	if err := Decode(r, format, dst); err != nil {
		return fmt.Errorf("unable to decode '%s': %w", path, err)
	}
	return nil
}
