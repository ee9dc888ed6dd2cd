// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxFormSize caps ordinary form posts (records, readings, tariffs).
	MaxFormSize = 1 << 20 // 1 MB

	// MaxTariffFormSize allows for time-of-use zone tables.
	MaxTariffFormSize = 256 << 10 // 256 KB

	// MaxExportRows stops a report export from materializing unbounded
	// result sets.
	MaxExportRows = 50000
)
