package simctl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const crashReportLines = 100

func (r *Runner) crashDir() string {
	if dir := r.config.DeviceConfig.CrashDir; dir != "" {
		return dir
	}

	return filepath.Join(r.home, "Library", "Logs", "DiagnosticReports")
}

// LatestCrashReport returns the newest .ips report whose file name contains
// appName, truncated to its first lines.
func (r *Runner) LatestCrashReport(appName string) (string, string, error) {
	dir := r.crashDir()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		newest   string
		newestAt time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".ips") || !strings.Contains(name, appName) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest, newestAt = name, info.ModTime()
		}
	}

	if newest == "" {
		return "", "", fmt.Errorf("no crash reports found for %s in %s", appName, dir)
	}

	path := filepath.Join(dir, newest)

	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for len(lines) < crashReportLines && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}

	return path, strings.Join(lines, "\n"), nil
}
