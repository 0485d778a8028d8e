package tree

import (
	"fmt"
	"time"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
)

// FormatFileSize renders a byte count with one decimal and a binary unit:
// 0 -> "0 B", 512 -> "512.0 B", 2048 -> "2.0 KB", 1048576 -> "1.0 MB".
func FormatFileSize(size int64) string {
	if size == 0 {
		return "0 B"
	}
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f TB", v)
}

// FormatDate renders a backend timestamp as "2006-01-02 15:04" in the
// timestamp's own offset. Unparseable input is returned unchanged.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	if t, ok := storage.ParseTime(s); ok {
		return t.Format("2006-01-02 15:04")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02 15:04")
	}
	return s
}
