package general

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
)

func GetCurrentFilepath() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filename)
}

func GetCurrentDir() string {
	return filepath.Dir(GetCurrentFilepath())
}

func GenerateUUID5StringFromByteArray(p []byte) string {
	UUID5Namespace := "3b0f6a52-8c1d-4e7a-a2f9-6d4c1e9b7a30"

	namespaceUUID, err := uuid.Parse(UUID5Namespace)
	if err != nil {
		slog.Warn(fmt.Sprintf("Error parsing namespace UUID: %+v", err))
	}
	uuid5 := uuid.NewSHA1(namespaceUUID, p)
	return uuid5.String()
}

// NewRunId derives a run id from the config fingerprint and the start time, so
// reruns of the same config stay distinguishable.
func NewRunId(fingerprint []byte, startedAt time.Time) string {
	seed := append(append([]byte(nil), fingerprint...), []byte(startedAt.UTC().Format(time.RFC3339Nano))...)
	return GenerateUUID5StringFromByteArray(seed)
}

func ItemInSlice[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func NoDuplicateItemsInSlice[T comparable](slice []T) bool {
	seen := make(map[T]bool)
	for _, item := range slice {
		if seen[item] {
			return false
		}
		seen[item] = true
	}
	return true
}

func GetSystemUsage() map[string]string {
	report := make(map[string]string)

	report["num_cpu"] = fmt.Sprintf("%d", runtime.NumCPU())
	report["num_goroutine"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	memoryUsage := runtime.MemStats{}
	runtime.ReadMemStats(&memoryUsage)
	report["memory_usage"] = fmt.Sprintf("%d", memoryUsage.Alloc)
	report["memory_total"] = fmt.Sprintf("%d", memoryUsage.TotalAlloc)
	report["memory_heap_alloc"] = fmt.Sprintf("%d", memoryUsage.HeapAlloc)
	report["memory_heap_inuse"] = fmt.Sprintf("%d", memoryUsage.HeapInuse)

	return report
}
