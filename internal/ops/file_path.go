package ops

import "github.com/hpungsan/fbz/internal/startup"

// FilePathOutput contains the result of the FilePath operation.
type FilePathOutput struct {
	Path string `json:"path"`
}

// FilePath hands out the launch path. Only the first call in a process sees
// it; later calls get "". A nil cell behaves as an empty launch.
func FilePath(cell *startup.Cell) FilePathOutput {
	if cell == nil {
		return FilePathOutput{}
	}
	return FilePathOutput{Path: cell.Take()}
}
