package driver

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var chromeCandidates = map[string][]string{
	"windows": {
		"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
		"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
	},
}

var edgeCandidates = map[string][]string{
	"windows": {
		"C:\\Program Files (x86)\\Microsoft\\Edge\\Application\\msedge.exe",
		"C:\\Program Files\\Microsoft\\Edge\\Application\\msedge.exe",
	},
	"darwin": {"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
	"linux":  {"/usr/bin/microsoft-edge", "/usr/bin/microsoft-edge-stable"},
}

var firefoxCandidates = map[string][]string{
	"windows": {"C:\\Program Files\\Mozilla Firefox\\firefox.exe"},
	"darwin":  {"/Applications/Firefox.app/Contents/MacOS/firefox"},
}

// TmpDir the engines create browser profiles under
func TmpDir(override string) string {
	if override != "" {
		return override
	}
	if runtime.GOOS == "windows" {
		return "C:\\Temp\\gcd\\"
	}
	return filepath.Join(os.TempDir(), "gcd") + string(filepath.Separator)
}

// FindChrome on the FS, override wins when set. Returns an empty string when
// nothing was found.
func FindChrome(override string) string {
	return find(override, chromeCandidates[runtime.GOOS], "google-chrome", "chromium", "chrome")
}

// FindEdge on the FS
func FindEdge(override string) string {
	return find(override, edgeCandidates[runtime.GOOS], "microsoft-edge", "msedge")
}

// FindFirefox on the FS
func FindFirefox() string {
	return find("", firefoxCandidates[runtime.GOOS], "firefox")
}

func find(override string, candidates []string, names ...string) string {
	if override != "" {
		return override
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
