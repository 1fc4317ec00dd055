// Package archive implements the zip container layer: appending changed
// files to a world's active container, restoring containers, and pruning
// old ones.
package archive

import (
	"fmt"
	"time"
)

// ContainerName derives a container filename from its creation time.
func ContainerName(created time.Time) string {
	return fmt.Sprintf("backup_%d.zip", created.UnixMilli())
}
