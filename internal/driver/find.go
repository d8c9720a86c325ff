package driver

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// FindDriver resolves a WebDriver binary. A non-empty path is validated as
// given; otherwise $PATH is searched first and then the usual install
// locations for the current OS.
func FindDriver(path string) (string, error) {
	if path != "" {
		if !fileExists(path) {
			return "", fmt.Errorf("driver binary not found at path: %s", path)
		}
		if !isExecutable(path) {
			return "", fmt.Errorf("driver binary found but not executable: %s", path)
		}
		return path, nil
	}

	for _, name := range []string{"chromedriver", "geckodriver", "msedgedriver"} {
		if found, err := exec.LookPath(name); err == nil {
			return found, nil
		}
	}

	for _, candidate := range driverPaths(runtime.GOOS) {
		if fileExists(candidate) && isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no webdriver binary found for %s, set DRIVER_PATH", runtime.GOOS)
}

// driverPaths returns common driver install locations for an OS
func driverPaths(operatingSystem string) []string {
	switch operatingSystem {
	case "darwin":
		return []string{
			"/opt/homebrew/bin/chromedriver",
			"/usr/local/bin/chromedriver",
			"/opt/homebrew/bin/geckodriver",
			"/usr/local/bin/geckodriver",
		}
	case "linux":
		return []string{
			"/usr/bin/chromedriver",
			"/usr/lib/chromium/chromedriver",
			"/usr/lib/chromium-browser/chromedriver",
			"/snap/bin/chromium.chromedriver",
			"/usr/local/bin/chromedriver",
			"/usr/bin/geckodriver",
			"/usr/local/bin/geckodriver",
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&0o111 != 0
}
